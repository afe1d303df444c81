package input

import (
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

type CreateMeetingInput struct {
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	MaxParticipants *int       `json:"maxParticipants"`
	ScheduledStart  *time.Time `json:"scheduledStart"`
}

type ListMeetingsFilter struct {
	HostID *uuid.UUID
	Status *models.MeetingStatus
	Limit  int
}

type ControlAction string

const (
	ControlMute    ControlAction = "mute"
	ControlUnmute  ControlAction = "unmute"
	ControlRemove  ControlAction = "remove"
	ControlPromote ControlAction = "promote"
	ControlDemote  ControlAction = "demote"
	ControlLock    ControlAction = "lock"
	ControlUnlock  ControlAction = "unlock"
)

// NeedsTarget - действие применяется к другому участнику
func (a ControlAction) NeedsTarget() bool {
	switch a {
	case ControlMute, ControlUnmute, ControlRemove, ControlPromote, ControlDemote:
		return true
	}

	return false
}

type ControlMeetingInput struct {
	Action       ControlAction `json:"action"`
	TargetUserID *uuid.UUID    `json:"targetUserId"`
	Role         *models.Role  `json:"role"`
}

type StartMusicInput struct {
	Source    models.MusicSource `json:"source"`
	TrackURL  string             `json:"trackUrl"`
	Volume    *int               `json:"volume"`
	IsLooping *bool              `json:"isLooping"`
}

type ShareResourceInput struct {
	Type        models.ResourceType `json:"type"`
	URL         string              `json:"url"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
}
