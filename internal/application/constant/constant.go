package constant

// Ключи атрибутов для slog
const (
	Error     = "error"
	UserID    = "user_id"
	MeetingID = "meeting_id"
	ChannelID = "channel_id"
	ConnID    = "conn_id"
	Event     = "event"
	Action    = "action"
	State     = "state"
	Backend   = "backend"
	Code      = "code"
)
