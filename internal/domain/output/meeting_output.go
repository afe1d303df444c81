package output

import "github.com/qrave1/RoomMeet/internal/domain/models"

// JoinResult - результат входа во встречу
type JoinResult struct {
	Meeting      *models.Meeting
	Participant  *models.Participant
	Token        string
	TransportUID uint32
	// Degraded - токен выдан без медиа-провайдера
	Degraded bool
}

// MeetingState - снимок встречи для ресинхронизации клиента
type MeetingState struct {
	Meeting      *models.Meeting        `json:"meeting"`
	Participants []*models.Participant  `json:"participants"`
	Music        *models.MusicState     `json:"music,omitempty"`
	Recording    *models.RecordingState `json:"recording,omitempty"`
	Resources    []models.ResourceShare `json:"resources"`
}
