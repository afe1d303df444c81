package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleHost      Role = "HOST"
	RoleCoHost    Role = "CO_HOST"
	RoleSpeaker   Role = "SPEAKER"
	RoleListener  Role = "LISTENER"
	RoleMusicHost Role = "MUSIC_HOST"
)

func (r Role) Valid() bool {
	switch r {
	case RoleHost, RoleCoHost, RoleSpeaker, RoleListener, RoleMusicHost:
		return true
	}

	return false
}

// TransportRole - роль участника на стороне медиа-провайдера
type TransportRole string

const (
	TransportRolePublisher  TransportRole = "publisher"
	TransportRoleSubscriber TransportRole = "subscriber"
)

// TransportRoleFor слушатели только принимают звук, остальные публикуют
func TransportRoleFor(r Role) TransportRole {
	if r == RoleListener {
		return TransportRoleSubscriber
	}

	return TransportRolePublisher
}

type Participant struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	MeetingID     uuid.UUID  `json:"meetingId" db:"meeting_id"`
	UserID        uuid.UUID  `json:"userId" db:"user_id"`
	Role          Role       `json:"role" db:"role"`
	IsMuted       bool       `json:"isMuted" db:"is_muted"`
	HasRaisedHand bool       `json:"hasRaisedHand" db:"has_raised_hand"`
	TransportUID  uint32     `json:"transportUid" db:"transport_uid"`
	JoinedAt      time.Time  `json:"joinedAt" db:"joined_at"`
	LeftAt        *time.Time `json:"leftAt,omitempty" db:"left_at"`
}

// NewParticipant создает активного участника. Слушатели входят с выключенным микрофоном.
func NewParticipant(meetingID, userID uuid.UUID, role Role, transportUID uint32, now time.Time) *Participant {
	return &Participant{
		ID:           uuid.New(),
		MeetingID:    meetingID,
		UserID:       userID,
		Role:         role,
		IsMuted:      role == RoleListener,
		TransportUID: transportUID,
		JoinedAt:     now,
	}
}

func (p *Participant) IsActive() bool {
	return p.LeftAt == nil
}

func (p *Participant) Clone() *Participant {
	c := *p

	return &c
}
