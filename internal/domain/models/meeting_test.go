package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMeetingLifecycle(t *testing.T) {
	now := time.Now()
	m := NewMeeting(uuid.New(), "standup", now)

	if m.Status != MeetingStatusScheduled {
		t.Fatalf("new meeting status = %s", m.Status)
	}

	if m.End(now) {
		t.Fatal("scheduled meeting must not end directly")
	}

	if !m.Start(now) || m.Status != MeetingStatusActive || m.StartedAt == nil {
		t.Fatalf("start failed: %+v", m)
	}

	if m.Start(now) {
		t.Fatal("second start must be a no-op")
	}

	if !m.End(now) || m.Status != MeetingStatusEnded {
		t.Fatalf("end failed: %+v", m)
	}

	if m.Cancel(now) {
		t.Fatal("ended meeting is terminal")
	}
}

func TestMeetingCancelFromScheduled(t *testing.T) {
	m := NewMeeting(uuid.New(), "demo", time.Now())

	if !m.Cancel(time.Now()) || !m.Status.IsTerminal() {
		t.Fatalf("cancel failed: %+v", m)
	}
}

func TestChannelName(t *testing.T) {
	id := uuid.MustParse("0f8fad5b-d9cb-469f-a165-70867728950e")

	got := ChannelName(id)
	if got != "meeting_0f8fad5bd9cb469fa16570867728950e" {
		t.Fatalf("ChannelName() = %q", got)
	}

	if strings.Contains(got, "-") {
		t.Fatal("channel name must not contain dashes")
	}
}

func TestIsFull(t *testing.T) {
	m := NewMeeting(uuid.New(), "x", time.Now())
	if m.IsFull(1000) {
		t.Fatal("unlimited meeting is never full")
	}

	limit := 2
	m.MaxParticipants = &limit

	if m.IsFull(1) || !m.IsFull(2) {
		t.Fatal("capacity boundary is wrong")
	}
}

func TestNewParticipantListenerStartsMuted(t *testing.T) {
	l := NewParticipant(uuid.New(), uuid.New(), RoleListener, 7, time.Now())
	s := NewParticipant(uuid.New(), uuid.New(), RoleSpeaker, 8, time.Now())

	if !l.IsMuted || s.IsMuted {
		t.Fatalf("listener muted=%v speaker muted=%v", l.IsMuted, s.IsMuted)
	}

	if TransportRoleFor(RoleListener) != TransportRoleSubscriber || TransportRoleFor(RoleHost) != TransportRolePublisher {
		t.Fatal("transport role mapping is wrong")
	}
}

func TestReconnectionStatusAt(t *testing.T) {
	now := time.Now()
	s := ReconnectionState{AttemptCount: 1, MaxAttempts: 3, NextAttempt: now.Add(time.Second)}

	if got := s.StatusAt(now); got != ReconnectStatusAwaitingBackoff {
		t.Fatalf("status = %s", got)
	}

	if got := s.StatusAt(now.Add(2 * time.Second)); got != ReconnectStatusAttempting {
		t.Fatalf("status = %s", got)
	}

	s.AttemptCount = 3
	if got := s.StatusAt(now.Add(time.Hour)); got != ReconnectStatusExhausted {
		t.Fatalf("status = %s", got)
	}
}
