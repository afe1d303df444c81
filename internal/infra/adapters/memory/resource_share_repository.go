package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

// ResourceShareRepository - журнал общих ресурсов встречи, только добавление
type ResourceShareRepository struct {
	mu        sync.RWMutex
	resources map[uuid.UUID][]models.ResourceShare
}

func NewResourceShareRepository() *ResourceShareRepository {
	return &ResourceShareRepository{resources: make(map[uuid.UUID][]models.ResourceShare)}
}

func (r *ResourceShareRepository) Add(_ context.Context, resource models.ResourceShare) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resources[resource.MeetingID] = append(r.resources[resource.MeetingID], resource)

	return nil
}

func (r *ResourceShareRepository) List(_ context.Context, meetingID uuid.UUID) ([]models.ResourceShare, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := slices.Clone(r.resources[meetingID])
	if list == nil {
		list = []models.ResourceShare{}
	}

	return list, nil
}
