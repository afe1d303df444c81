package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

const (
	recordingKeyPrefix = "meeting:recording:"
	recordingTTL       = 24 * time.Hour
)

type RecordingStateRepository struct {
	*jsonStore[models.RecordingState]
}

func NewRecordingStateRepository(client *goredis.Client) *RecordingStateRepository {
	return &RecordingStateRepository{jsonStore: newJSONStore[models.RecordingState](client, recordingKeyPrefix, recordingTTL)}
}

func (r *RecordingStateRepository) Update(
	ctx context.Context,
	meetingID uuid.UUID,
	fn func(*models.RecordingState),
) (models.RecordingState, error) {
	return r.update(ctx, meetingID, func(state models.RecordingState, _ bool) (models.RecordingState, error) {
		fn(&state)
		return state, nil
	})
}
