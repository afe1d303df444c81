package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/qrave1/RoomMeet/internal/domain/events"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/infra/adapters/memory"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

type sentEvent struct {
	meetingID uuid.UUID
	name      string
	payload   events.Payload
}

type fakeBroadcaster struct {
	mu   sync.Mutex
	sent []sentEvent
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, meetingID uuid.UUID, event string, payload events.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, sentEvent{meetingID: meetingID, name: event, payload: payload})

	return nil
}

func (f *fakeBroadcaster) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0

	for _, e := range f.sent {
		if e.name == name {
			n++
		}
	}

	return n
}

func (f *fakeBroadcaster) last(name string) (sentEvent, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].name == name {
			return f.sent[i], true
		}
	}

	return sentEvent{}, false
}

type fakeCanceler struct {
	mu      sync.Mutex
	cleared []uuid.UUID
}

func (f *fakeCanceler) Clear(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cleared = append(f.cleared, userID)
}

func (f *fakeCanceler) wasCleared(userID uuid.UUID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.cleared {
		if id == userID {
			return true
		}
	}

	return false
}

var errProviderDown = errors.New("provider unavailable")

type fakeMedia struct {
	configured bool
	tokenErr   error
	startErr   error
	stopErr    error
	files      []string

	mu       sync.Mutex
	acquired int
}

func (f *fakeMedia) Configured() bool { return f.configured }

func (f *fakeMedia) JoinToken(_ context.Context, channelID string, _ uint32, role models.TransportRole) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}

	return "media:" + channelID + ":" + string(role), nil
}

func (f *fakeMedia) AcquireRecording(context.Context, string, uint32) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.acquired++

	return "resource-1", nil
}

func (f *fakeMedia) StartRecording(context.Context, string, uint32, string, string) (string, error) {
	if f.startErr != nil {
		return "", f.startErr
	}

	return "session-1", nil
}

func (f *fakeMedia) StopRecording(context.Context, string, uint32, string, string) ([]string, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}

	return f.files, nil
}

// countingMusicStore считает обращения к хранилищу музыки
type countingMusicStore struct {
	*memory.MusicStateRepository

	mu    sync.Mutex
	calls int
}

func (c *countingMusicStore) Set(ctx context.Context, meetingID uuid.UUID, state models.MusicState) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	return c.MusicStateRepository.Set(ctx, meetingID, state)
}

func (c *countingMusicStore) UpdateVolume(ctx context.Context, meetingID uuid.UUID, volume int) (models.MusicState, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	return c.MusicStateRepository.UpdateVolume(ctx, meetingID, volume)
}

type env struct {
	uc          usecase.MeetingUsecase
	repo        *memory.MeetingRepository
	music       *countingMusicStore
	recording   *memory.RecordingStateRepository
	broadcaster *fakeBroadcaster
	canceler    *fakeCanceler
	media       *fakeMedia
}

func newEnv(t *testing.T, media *fakeMedia) *env {
	t.Helper()

	if media == nil {
		media = &fakeMedia{}
	}

	e := &env{
		repo:        memory.NewMeetingRepository(),
		music:       &countingMusicStore{MusicStateRepository: memory.NewMusicStateRepository()},
		recording:   memory.NewRecordingStateRepository(),
		broadcaster: &fakeBroadcaster{},
		canceler:    &fakeCanceler{},
		media:       media,
	}

	e.uc = usecase.NewMeetingUsecase(
		e.repo,
		e.music,
		e.recording,
		memory.NewResourceShareRepository(),
		e.media,
		e.broadcaster,
		e.canceler,
		clockwork.NewFakeClock(),
	)

	return e
}

func (e *env) createMeeting(t *testing.T, hostID uuid.UUID, limit *int) *models.Meeting {
	t.Helper()

	m, err := e.uc.CreateMeeting(context.Background(), hostID, input.CreateMeetingInput{
		Title:           "weekly sync",
		MaxParticipants: limit,
	})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	return m
}

func (e *env) join(t *testing.T, meetingID, userID uuid.UUID, role *models.Role) {
	t.Helper()

	if _, err := e.uc.JoinMeeting(context.Background(), userID, meetingID, role); err != nil {
		t.Fatalf("join %s: %v", userID, err)
	}
}

func ptr[T any](v T) *T {
	return &v
}
