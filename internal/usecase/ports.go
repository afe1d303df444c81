package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain/events"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

// MeetingRepository хранит встречи и участников.
// GetByID возвращает domain.ErrMeetingNotFound, GetActiveParticipant - domain.ErrNotParticipant.
type MeetingRepository interface {
	Create(ctx context.Context, meeting *models.Meeting, host *models.Participant) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error)
	List(ctx context.Context, filter input.ListMeetingsFilter) ([]*models.Meeting, error)

	GetActiveParticipant(ctx context.Context, meetingID, userID uuid.UUID) (*models.Participant, error)
	ListActiveParticipants(ctx context.Context, meetingID uuid.UUID) ([]*models.Participant, error)

	// WithinMeeting выполняет fn, удерживая эксклюзивную блокировку встречи.
	// Проверка вместимости, прав и сама мутация происходят внутри одной критической секции.
	WithinMeeting(ctx context.Context, meetingID uuid.UUID, fn func(tx MeetingTx) error) error
}

// MeetingTx - представление встречи внутри критической секции
type MeetingTx interface {
	// Meeting возвращает копию заблокированной встречи. Изменения сохраняются через UpdateMeeting.
	Meeting() *models.Meeting
	UpdateMeeting(ctx context.Context, meeting *models.Meeting) error

	CountActiveParticipants(ctx context.Context) (int, error)
	GetActiveParticipant(ctx context.Context, userID uuid.UUID) (*models.Participant, error)
	ListActiveParticipants(ctx context.Context) ([]*models.Participant, error)
	AddParticipant(ctx context.Context, participant *models.Participant) error
	UpdateParticipant(ctx context.Context, participant *models.Participant) error
	// CloseParticipant проставляет left_at активной записи. false - активной записи не было.
	CloseParticipant(ctx context.Context, userID uuid.UUID, leftAt time.Time) (bool, error)
}

// StateStore - общий контракт эфемерных хранилищ состояния встречи
type StateStore[T any] interface {
	Set(ctx context.Context, meetingID uuid.UUID, state T) error
	Get(ctx context.Context, meetingID uuid.UUID) (T, bool, error)
	Delete(ctx context.Context, meetingID uuid.UUID) error
}

type MusicStateRepository interface {
	StateStore[models.MusicState]
	// UpdateVolume возвращает domain.ErrMusicNotActive, если музыка не играет
	UpdateVolume(ctx context.Context, meetingID uuid.UUID, volume int) (models.MusicState, error)
}

type RecordingStateRepository interface {
	StateStore[models.RecordingState]
	Update(ctx context.Context, meetingID uuid.UUID, fn func(*models.RecordingState)) (models.RecordingState, error)
}

// ResourceShareRepository - только добавление и чтение
type ResourceShareRepository interface {
	Add(ctx context.Context, resource models.ResourceShare) error
	List(ctx context.Context, meetingID uuid.UUID) ([]models.ResourceShare, error)
}

type NetworkQualityRepository interface {
	Save(ctx context.Context, sample models.NetworkQualitySample) error
	Get(ctx context.Context, meetingID, userID uuid.UUID) (models.NetworkQualitySample, bool, error)
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Broadcaster доставляет события встречи подключенным клиентам
type Broadcaster interface {
	Broadcast(ctx context.Context, meetingID uuid.UUID, event string, payload events.Payload) error
}

// Broadcasters рассылает событие в несколько направлений, ошибки объединяются
type Broadcasters []Broadcaster

func (b Broadcasters) Broadcast(ctx context.Context, meetingID uuid.UUID, event string, payload events.Payload) error {
	var errs []error

	for _, br := range b {
		if err := br.Broadcast(ctx, meetingID, event, payload); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// MediaProvider - внешний провайдер медиа-транспорта и облачной записи
type MediaProvider interface {
	Configured() bool
	JoinToken(ctx context.Context, channelID string, uid uint32, role models.TransportRole) (string, error)

	AcquireRecording(ctx context.Context, channelID string, uid uint32) (resourceID string, err error)
	StartRecording(ctx context.Context, channelID string, uid uint32, resourceID, token string) (sessionID string, err error)
	StopRecording(ctx context.Context, channelID string, uid uint32, resourceID, sessionID string) (fileList []string, err error)
}

// ReconnectionCanceler сбрасывает переподключение пользователя, когда он покидает встречу
type ReconnectionCanceler interface {
	Clear(userID uuid.UUID)
}

// ReconnectionObserver получает уведомления автомата переподключения
type ReconnectionObserver interface {
	ReconnectionReady(state models.ReconnectionState)
	ReconnectionExhausted(state models.ReconnectionState)
}
