package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MeetingStatus string

const (
	MeetingStatusScheduled MeetingStatus = "SCHEDULED"
	MeetingStatusActive    MeetingStatus = "ACTIVE"
	MeetingStatusEnded     MeetingStatus = "ENDED"
	MeetingStatusCancelled MeetingStatus = "CANCELLED"
)

// IsTerminal сообщает, что встреча завершена и новые входы невозможны
func (s MeetingStatus) IsTerminal() bool {
	return s == MeetingStatusEnded || s == MeetingStatusCancelled
}

func (s MeetingStatus) Valid() bool {
	switch s {
	case MeetingStatusScheduled, MeetingStatusActive, MeetingStatusEnded, MeetingStatusCancelled:
		return true
	}

	return false
}

type Meeting struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	Title            string        `json:"title" db:"title"`
	Description      string        `json:"description,omitempty" db:"description"`
	HostID           uuid.UUID     `json:"hostId" db:"host_id"`
	ChannelID        string        `json:"channelId" db:"channel_id"`
	Status           MeetingStatus `json:"status" db:"status"`
	IsLocked         bool          `json:"isLocked" db:"is_locked"`
	MaxParticipants  *int          `json:"maxParticipants,omitempty" db:"max_participants"`
	MusicEnabled     bool          `json:"musicEnabled" db:"music_enabled"`
	RecordingEnabled bool          `json:"recordingEnabled" db:"recording_enabled"`
	ScheduledStart   *time.Time    `json:"scheduledStart,omitempty" db:"scheduled_start"`
	StartedAt        *time.Time    `json:"startedAt,omitempty" db:"started_at"`
	EndedAt          *time.Time    `json:"endedAt,omitempty" db:"ended_at"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time     `json:"updatedAt" db:"updated_at"`
}

func NewMeeting(hostID uuid.UUID, title string, now time.Time) *Meeting {
	id := uuid.New()

	return &Meeting{
		ID:        id,
		Title:     title,
		HostID:    hostID,
		ChannelID: ChannelName(id),
		Status:    MeetingStatusScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ChannelName строит имя транспортного канала для встречи
func ChannelName(meetingID uuid.UUID) string {
	return "meeting_" + strings.ReplaceAll(meetingID.String(), "-", "")
}

// IsFull сообщает, что активных участников не меньше лимита
func (m *Meeting) IsFull(activeCount int) bool {
	return m.MaxParticipants != nil && activeCount >= *m.MaxParticipants
}

// Start переводит SCHEDULED -> ACTIVE. Возвращает false, если перехода не было.
func (m *Meeting) Start(now time.Time) bool {
	if m.Status != MeetingStatusScheduled {
		return false
	}

	m.Status = MeetingStatusActive
	m.StartedAt = &now
	m.UpdatedAt = now

	return true
}

// End переводит ACTIVE -> ENDED.
func (m *Meeting) End(now time.Time) bool {
	if m.Status != MeetingStatusActive {
		return false
	}

	m.Status = MeetingStatusEnded
	m.EndedAt = &now
	m.UpdatedAt = now

	return true
}

// Cancel переводит любую нетерминальную встречу в CANCELLED.
func (m *Meeting) Cancel(now time.Time) bool {
	if m.Status.IsTerminal() {
		return false
	}

	m.Status = MeetingStatusCancelled
	m.EndedAt = &now
	m.UpdatedAt = now

	return true
}

func (m *Meeting) Clone() *Meeting {
	c := *m

	return &c
}
