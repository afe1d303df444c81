package models

import (
	"time"

	"github.com/google/uuid"
)

type MusicSource string

const (
	MusicSourceUpload MusicSource = "upload"
	MusicSourceStream MusicSource = "stream"
	MusicSourceURL    MusicSource = "url"
)

func (s MusicSource) Valid() bool {
	return s == MusicSourceUpload || s == MusicSourceStream || s == MusicSourceURL
}

const (
	DefaultMusicVolume = 50
	MinMusicVolume     = 0
	MaxMusicVolume     = 100
)

func ValidVolume(v int) bool {
	return v >= MinMusicVolume && v <= MaxMusicVolume
}

// MusicState существует только пока музыка играет
type MusicState struct {
	IsEnabled bool        `json:"isEnabled"`
	Source    MusicSource `json:"source"`
	TrackURL  string      `json:"trackUrl"`
	Volume    int         `json:"volume"`
	IsLooping bool        `json:"isLooping"`
	StartedBy uuid.UUID   `json:"startedBy"`
	StartedAt time.Time   `json:"startedAt"`
}

type RecordingStatus string

const (
	RecordingStatusStarting  RecordingStatus = "STARTING"
	RecordingStatusRecording RecordingStatus = "RECORDING"
	RecordingStatusStopping  RecordingStatus = "STOPPING"
	RecordingStatusStopped   RecordingStatus = "STOPPED"
	RecordingStatusFailed    RecordingStatus = "FAILED"
)

// InProgress - запись запускается или уже идет
func (s RecordingStatus) InProgress() bool {
	return s == RecordingStatusStarting || s == RecordingStatusRecording || s == RecordingStatusStopping
}

type RecordingState struct {
	IsRecording bool            `json:"isRecording"`
	RecordingID string          `json:"recordingId,omitempty"`
	ResourceID  string          `json:"resourceId,omitempty"`
	RecorderUID uint32          `json:"recorderUid,omitempty"`
	StartedBy   uuid.UUID       `json:"startedBy"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	StoppedAt   *time.Time      `json:"stoppedAt,omitempty"`
	StorageURL  string          `json:"storageUrl,omitempty"`
	Duration    int64           `json:"duration"`
	FileSize    int64           `json:"fileSize"`
	FileList    []string        `json:"fileList,omitempty"`
	Status      RecordingStatus `json:"status"`
}

type ResourceType string

const (
	ResourceTypePDF   ResourceType = "pdf"
	ResourceTypeImage ResourceType = "image"
	ResourceTypeLink  ResourceType = "link"
	ResourceTypeVideo ResourceType = "video"
	ResourceTypeAudio ResourceType = "audio"
	ResourceTypeOther ResourceType = "other"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypePDF, ResourceTypeImage, ResourceTypeLink, ResourceTypeVideo, ResourceTypeAudio, ResourceTypeOther:
		return true
	}

	return false
}

type ResourceShare struct {
	ID          uuid.UUID    `json:"id"`
	MeetingID   uuid.UUID    `json:"meetingId"`
	Type        ResourceType `json:"type"`
	URL         string       `json:"url"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	SharedBy    uuid.UUID    `json:"sharedBy"`
	SharedAt    time.Time    `json:"sharedAt"`
}
