package domain

import "github.com/qrave1/RoomMeet/internal/domain/models"

type Action string

const (
	ActionMuteSelf      Action = "mute-self"
	ActionUnmuteSelf    Action = "unmute-self"
	ActionRaiseHand     Action = "raise-hand"
	ActionShareResource Action = "share-resource"

	ActionMute    Action = "mute"
	ActionUnmute  Action = "unmute"
	ActionRemove  Action = "remove"
	ActionPromote Action = "promote"
	ActionDemote  Action = "demote"

	ActionLock   Action = "lock"
	ActionUnlock Action = "unlock"
	ActionCancel Action = "cancel"

	ActionMusic       Action = "music"
	ActionRecording   Action = "recording"
	ActionScreenshare Action = "screenshare"
)

var (
	anyRole   = []models.Role{models.RoleHost, models.RoleCoHost, models.RoleSpeaker, models.RoleListener, models.RoleMusicHost}
	moderator = []models.Role{models.RoleHost, models.RoleCoHost}
	hostOnly  = []models.Role{models.RoleHost}
)

var capabilities = map[Action][]models.Role{
	ActionMuteSelf:      anyRole,
	ActionUnmuteSelf:    anyRole,
	ActionRaiseHand:     anyRole,
	ActionShareResource: anyRole,

	ActionMute:    moderator,
	ActionUnmute:  moderator,
	ActionRemove:  moderator,
	ActionPromote: moderator,
	ActionDemote:  moderator,

	// роль HOST есть только у хоста встречи, ее нельзя выдать или снять
	ActionLock:   hostOnly,
	ActionUnlock: hostOnly,
	ActionCancel: hostOnly,

	ActionMusic:       {models.RoleHost, models.RoleCoHost, models.RoleMusicHost},
	ActionRecording:   moderator,
	ActionScreenshare: moderator,
}

// CanPerform - единственная проверка прав участника на действие
func CanPerform(p *models.Participant, action Action) bool {
	if p == nil || !p.IsActive() {
		return false
	}

	for _, role := range capabilities[action] {
		if p.Role == role {
			return true
		}
	}

	return false
}
