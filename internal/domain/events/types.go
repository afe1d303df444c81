package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

// Message - общее событие
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Сообщения протокола реального времени
const (
	TypeJoin   = "join"
	TypeLeave  = "leave"
	TypePing   = "ping"
	TypeJoined = "joined"
	TypeLeft   = "left"
	TypePong   = "pong"
	TypeError  = "error"
)

// События встречи
const (
	ParticipantJoined  = "participant-joined"
	ParticipantLeft    = "participant-left"
	ParticipantMuted   = "participant-muted"
	ParticipantUnmuted = "participant-unmuted"
	HandRaised         = "hand-raised"
	HandLowered        = "hand-lowered"
	HostPromoted       = "host-promoted"
	RecordingStarted   = "recording-started"
	RecordingStopped   = "recording-stopped"
	MusicStarted       = "music-started"
	MusicStopped       = "music-stopped"
	MusicVolumeUpdated = "music-volume-updated"
	ScreenshareStarted = "screenshare-started"
	ScreenshareStopped = "screenshare-stopped"
	ResourceShared     = "resource-shared"
	Locked             = "locked"
	Unlocked           = "unlocked"
	MeetingEnded       = "meeting-ended"
	MeetingCancelled   = "meeting-cancelled"
	ReconnectReady     = "reconnect-ready"
	ReconnectExhausted = "reconnect-exhausted"
)

// RoomEvent - тело join/leave от клиента и подтверждения от сервера
type RoomEvent struct {
	MeetingID uuid.UUID `json:"meetingId"`
}

// ErrorEvent - ошибка обработки сообщения клиента
type ErrorEvent struct {
	Message string `json:"message"`
}

// Payload - тело события встречи. MeetingID, UserID и Timestamp есть всегда.
type Payload struct {
	MeetingID    uuid.UUID                 `json:"meetingId"`
	UserID       uuid.UUID                 `json:"userId"`
	Timestamp    time.Time                 `json:"timestamp"`
	ActorID      *uuid.UUID                `json:"actorId,omitempty"`
	Participant  *models.Participant       `json:"participant,omitempty"`
	Role         *models.Role              `json:"role,omitempty"`
	MusicState   *models.MusicState        `json:"musicState,omitempty"`
	Volume       *int                      `json:"volume,omitempty"`
	Recording    *models.RecordingState    `json:"recording,omitempty"`
	Resource     *models.ResourceShare     `json:"resource,omitempty"`
	Reconnection *models.ReconnectionState `json:"reconnection,omitempty"`
}

// Event - событие встречи, ожидающее отправки
type Event struct {
	Name    string
	Payload Payload
}

// Encode собирает сообщение {"type": ..., "data": ...}
func Encode(msgType string, data any) ([]byte, error) {
	if data == nil {
		return json.Marshal(Message{Type: msgType})
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s data: %w", msgType, err)
	}

	b, err := json.Marshal(Message{Type: msgType, Data: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s message: %w", msgType, err)
	}

	return b, nil
}
