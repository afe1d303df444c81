package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

type MusicStateRepository struct {
	*stateStore[models.MusicState]
}

func NewMusicStateRepository() *MusicStateRepository {
	return &MusicStateRepository{stateStore: newStateStore[models.MusicState]()}
}

func (r *MusicStateRepository) UpdateVolume(_ context.Context, meetingID uuid.UUID, volume int) (models.MusicState, error) {
	return r.update(meetingID, func(state models.MusicState, ok bool) (models.MusicState, error) {
		if !ok {
			return state, domain.ErrMusicNotActive
		}

		state.Volume = volume

		return state, nil
	})
}
