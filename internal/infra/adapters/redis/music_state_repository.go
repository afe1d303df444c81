package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

const (
	musicKeyPrefix = "meeting:music:"
	musicTTL       = 24 * time.Hour
)

type MusicStateRepository struct {
	*jsonStore[models.MusicState]
}

func NewMusicStateRepository(client *goredis.Client) *MusicStateRepository {
	return &MusicStateRepository{jsonStore: newJSONStore[models.MusicState](client, musicKeyPrefix, musicTTL)}
}

func (r *MusicStateRepository) UpdateVolume(ctx context.Context, meetingID uuid.UUID, volume int) (models.MusicState, error) {
	return r.update(ctx, meetingID, func(state models.MusicState, ok bool) (models.MusicState, error) {
		if !ok {
			return state, domain.ErrMusicNotActive
		}

		state.Volume = volume

		return state, nil
	})
}
