package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

func participant(role models.Role) *models.Participant {
	return models.NewParticipant(uuid.New(), uuid.New(), role, 1, time.Now())
}

func TestCanPerform(t *testing.T) {
	tests := []struct {
		role    models.Role
		action  Action
		allowed bool
	}{
		{models.RoleListener, ActionMuteSelf, true},
		{models.RoleListener, ActionUnmuteSelf, true},
		{models.RoleListener, ActionRaiseHand, true},
		{models.RoleListener, ActionShareResource, true},
		{models.RoleListener, ActionMute, false},
		{models.RoleSpeaker, ActionRemove, false},
		{models.RoleCoHost, ActionMute, true},
		{models.RoleCoHost, ActionPromote, true},
		{models.RoleCoHost, ActionLock, false},
		{models.RoleHost, ActionLock, true},
		{models.RoleHost, ActionCancel, true},
		{models.RoleMusicHost, ActionMusic, true},
		{models.RoleMusicHost, ActionRecording, false},
		{models.RoleMusicHost, ActionScreenshare, false},
		{models.RoleSpeaker, ActionMusic, false},
		{models.RoleCoHost, ActionRecording, true},
		{models.RoleHost, Action("dance"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			if got := CanPerform(participant(tt.role), tt.action); got != tt.allowed {
				t.Errorf("CanPerform(%s, %s) = %v, want %v", tt.role, tt.action, got, tt.allowed)
			}
		})
	}
}

func TestCanPerformInactiveParticipant(t *testing.T) {
	p := participant(models.RoleHost)
	left := time.Now()
	p.LeftAt = &left

	if CanPerform(p, ActionLock) {
		t.Fatal("participant who left must not be able to act")
	}

	if CanPerform(nil, ActionRaiseHand) {
		t.Fatal("nil participant must not be able to act")
	}
}

func TestPlaceholderTokenIsDeterministic(t *testing.T) {
	a := PlaceholderToken("meeting_abc", 42)
	b := PlaceholderToken("meeting_abc", 42)
	c := PlaceholderToken("meeting_abc", 43)

	if a != b {
		t.Fatalf("same input produced different tokens: %q vs %q", a, b)
	}

	if a == c {
		t.Fatal("different uids produced the same token")
	}

	if len(a) != len("placeholder_")+32 {
		t.Fatalf("unexpected token length %d", len(a))
	}
}

func TestAsError(t *testing.T) {
	wrapped := fmtWrap(ErrMeetingFull)

	de, ok := AsError(wrapped)
	if !ok || de.Code != "MEETING_FULL" {
		t.Fatalf("AsError() = %v, %v", de, ok)
	}

	if _, ok := AsError(errPlain); ok {
		t.Fatal("plain error must not be a domain error")
	}
}
