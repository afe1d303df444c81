package domain

import "errors"

// Error - ожидаемое нарушение бизнес-правила. Code стабилен и отдается клиенту как есть.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrMeetingNotFound            = newError("MEETING_NOT_FOUND", "meeting not found")
	ErrMeetingLocked              = newError("MEETING_LOCKED", "meeting is locked")
	ErrMeetingEnded               = newError("MEETING_ENDED", "meeting has ended")
	ErrMeetingFull                = newError("MEETING_FULL", "meeting is full")
	ErrNotParticipant             = newError("NOT_PARTICIPANT", "user is not a participant of the meeting")
	ErrInsufficientPermissions    = newError("INSUFFICIENT_PERMISSIONS", "insufficient permissions")
	ErrInvalidAction              = newError("INVALID_ACTION", "invalid action")
	ErrInvalidVolume              = newError("INVALID_VOLUME", "volume must be between 0 and 100")
	ErrMusicNotActive             = newError("MUSIC_NOT_ACTIVE", "no active background music")
	ErrMediaProviderNotConfigured = newError("MEDIA_PROVIDER_NOT_CONFIGURED", "media provider is not configured")
	ErrRecordingProviderFailed    = newError("RECORDING_PROVIDER_FAILED", "recording provider request failed")
	ErrRecordingAlreadyActive     = newError("RECORDING_ALREADY_ACTIVE", "recording is already in progress")
	ErrRecordingNotActive         = newError("RECORDING_NOT_ACTIVE", "no active recording")
	ErrValidation                 = newError("VALIDATION_ERROR", "invalid request")
	ErrUnauthorized               = newError("UNAUTHORIZED", "unauthorized")
)

// AsError достает доменную ошибку из цепочки обертки
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}

	return nil, false
}
