package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

var errDuplicateParticipant = errors.New("active participant already exists")

// stateStore - эфемерное состояние встречи в памяти процесса, последняя запись побеждает
type stateStore[T any] struct {
	mu     sync.RWMutex
	states map[uuid.UUID]T
}

func newStateStore[T any]() *stateStore[T] {
	return &stateStore[T]{states: make(map[uuid.UUID]T)}
}

func (s *stateStore[T]) Set(_ context.Context, meetingID uuid.UUID, state T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[meetingID] = state

	return nil
}

func (s *stateStore[T]) Get(_ context.Context, meetingID uuid.UUID) (T, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[meetingID]

	return state, ok, nil
}

func (s *stateStore[T]) Delete(_ context.Context, meetingID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, meetingID)

	return nil
}

// update выполняет чтение-изменение-запись одного ключа под блокировкой
func (s *stateStore[T]) update(meetingID uuid.UUID, fn func(state T, ok bool) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.states[meetingID]

	next, err := fn(cur, ok)
	if err != nil {
		var zero T
		return zero, err
	}

	s.states[meetingID] = next

	return next, nil
}
