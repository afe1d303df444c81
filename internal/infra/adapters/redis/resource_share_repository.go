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
	resourcesKeyPrefix = "meeting:resources:"
	resourcesTTL       = 24 * time.Hour
)

// ResourceShareRepository - список ресурсов встречи, только RPUSH
type ResourceShareRepository struct {
	client *goredis.Client
}

func NewResourceShareRepository(client *goredis.Client) *ResourceShareRepository {
	return &ResourceShareRepository{client: client}
}

func (r *ResourceShareRepository) Add(ctx context.Context, resource models.ResourceShare) error {
	data, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("marshal resource: %w", err)
	}

	key := resourcesKeyPrefix + resource.MeetingID.String()

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.Expire(ctx, key, resourcesTTL)

		return nil
	})
	if err != nil {
		return fmt.Errorf("push resource: %w", err)
	}

	return nil
}

func (r *ResourceShareRepository) List(ctx context.Context, meetingID uuid.UUID) ([]models.ResourceShare, error) {
	raw, err := r.client.LRange(ctx, resourcesKeyPrefix+meetingID.String(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("range resources: %w", err)
	}

	list := make([]models.ResourceShare, 0, len(raw))

	for _, item := range raw {
		var res models.ResourceShare
		if err := json.Unmarshal([]byte(item), &res); err != nil {
			return nil, fmt.Errorf("unmarshal resource: %w", err)
		}

		list = append(list, res)
	}

	return list, nil
}
