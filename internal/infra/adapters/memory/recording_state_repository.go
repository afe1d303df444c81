package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

type RecordingStateRepository struct {
	*stateStore[models.RecordingState]
}

func NewRecordingStateRepository() *RecordingStateRepository {
	return &RecordingStateRepository{stateStore: newStateStore[models.RecordingState]()}
}

// Update применяет fn к текущему состоянию. Отсутствующее состояние начинается с нулевого.
func (r *RecordingStateRepository) Update(
	_ context.Context,
	meetingID uuid.UUID,
	fn func(*models.RecordingState),
) (models.RecordingState, error) {
	return r.update(meetingID, func(state models.RecordingState, _ bool) (models.RecordingState, error) {
		state.FileList = slices.Clone(state.FileList)
		fn(&state)

		return state, nil
	})
}
