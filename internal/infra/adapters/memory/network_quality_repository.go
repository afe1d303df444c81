package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

type qualityKey struct {
	meetingID uuid.UUID
	userID    uuid.UUID
}

// NetworkQualityRepository хранит последний замер на пару (встреча, пользователь)
type NetworkQualityRepository struct {
	mu      sync.RWMutex
	samples map[qualityKey]models.NetworkQualitySample
}

func NewNetworkQualityRepository() *NetworkQualityRepository {
	return &NetworkQualityRepository{samples: make(map[qualityKey]models.NetworkQualitySample)}
}

func (r *NetworkQualityRepository) Save(_ context.Context, sample models.NetworkQualitySample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.samples[qualityKey{sample.MeetingID, sample.UserID}] = sample

	return nil
}

func (r *NetworkQualityRepository) Get(
	_ context.Context,
	meetingID, userID uuid.UUID,
) (models.NetworkQualitySample, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.samples[qualityKey{meetingID, userID}]

	return s, ok, nil
}

func (r *NetworkQualityRepository) EvictOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0

	for k, s := range r.samples {
		if s.Timestamp.Before(cutoff) {
			delete(r.samples, k)
			n++
		}
	}

	return n, nil
}
