package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/qrave1/RoomMeet/internal/domain/models"
)

const (
	qualityKeyPrefix = "network:quality:"
	qualityTTL       = 300 * time.Second
)

// NetworkQualityRepository хранит последний замер с TTL, поэтому отдельная чистка не нужна
type NetworkQualityRepository struct {
	client *goredis.Client
}

func NewNetworkQualityRepository(client *goredis.Client) *NetworkQualityRepository {
	return &NetworkQualityRepository{client: client}
}

func qualityKey(meetingID, userID uuid.UUID) string {
	return qualityKeyPrefix + meetingID.String() + ":" + userID.String()
}

func (r *NetworkQualityRepository) Save(ctx context.Context, sample models.NetworkQualitySample) error {
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	if err := r.client.Set(ctx, qualityKey(sample.MeetingID, sample.UserID), data, qualityTTL).Err(); err != nil {
		return fmt.Errorf("set sample: %w", err)
	}

	return nil
}

func (r *NetworkQualityRepository) Get(
	ctx context.Context,
	meetingID, userID uuid.UUID,
) (models.NetworkQualitySample, bool, error) {
	return decode[models.NetworkQualitySample](r.client.Get(ctx, qualityKey(meetingID, userID)))
}

func (r *NetworkQualityRepository) EvictOlderThan(context.Context, time.Time) (int, error) {
	return 0, nil
}
