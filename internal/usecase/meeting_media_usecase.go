package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/events"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/domain/models"
)

func (u *meetingUsecase) StartMusic(
	ctx context.Context,
	meetingID, userID uuid.UUID,
	in input.StartMusicInput,
) (models.MusicState, error) {
	volume := models.DefaultMusicVolume
	if in.Volume != nil {
		volume = *in.Volume
	}

	// громкость проверяется до обращения к хранилищу
	if !models.ValidVolume(volume) {
		return models.MusicState{}, domain.ErrInvalidVolume
	}

	if !in.Source.Valid() {
		return models.MusicState{}, fmt.Errorf("music source %q: %w", in.Source, domain.ErrValidation)
	}

	if strings.TrimSpace(in.TrackURL) == "" {
		return models.MusicState{}, fmt.Errorf("track url is required: %w", domain.ErrValidation)
	}

	looping := true
	if in.IsLooping != nil {
		looping = *in.IsLooping
	}

	state := models.MusicState{
		IsEnabled: true,
		Source:    in.Source,
		TrackURL:  in.TrackURL,
		Volume:    volume,
		IsLooping: looping,
		StartedBy: userID,
		StartedAt: u.clock.Now(),
	}

	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, userID, domain.ActionMusic); err != nil {
			return err
		}

		if err := u.music.Set(ctx, meetingID, state); err != nil {
			return fmt.Errorf("set music state: %w", err)
		}

		return u.setMeetingFlag(ctx, tx, func(m *models.Meeting) *bool { return &m.MusicEnabled }, true)
	})
	if err != nil {
		return models.MusicState{}, err
	}

	u.publish(ctx, meetingID, events.Event{
		Name:    events.MusicStarted,
		Payload: u.payload(meetingID, userID, func(p *events.Payload) { p.MusicState = &state }),
	})

	return state, nil
}

func (u *meetingUsecase) StopMusic(ctx context.Context, meetingID, userID uuid.UUID) error {
	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, userID, domain.ActionMusic); err != nil {
			return err
		}

		if err := u.music.Delete(ctx, meetingID); err != nil {
			return fmt.Errorf("delete music state: %w", err)
		}

		return u.setMeetingFlag(ctx, tx, func(m *models.Meeting) *bool { return &m.MusicEnabled }, false)
	})
	if err != nil {
		return err
	}

	u.publish(ctx, meetingID, events.Event{Name: events.MusicStopped, Payload: u.payload(meetingID, userID, nil)})

	return nil
}

func (u *meetingUsecase) UpdateMusicVolume(
	ctx context.Context,
	meetingID, userID uuid.UUID,
	volume int,
) (models.MusicState, error) {
	if !models.ValidVolume(volume) {
		return models.MusicState{}, domain.ErrInvalidVolume
	}

	var state models.MusicState

	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, userID, domain.ActionMusic); err != nil {
			return err
		}

		var err error
		state, err = u.music.UpdateVolume(ctx, meetingID, volume)

		return err
	})
	if err != nil {
		return models.MusicState{}, err
	}

	u.publish(ctx, meetingID, events.Event{
		Name:    events.MusicVolumeUpdated,
		Payload: u.payload(meetingID, userID, func(p *events.Payload) { p.Volume = &state.Volume }),
	})

	return state, nil
}

// GetMusicState возвращает nil, если музыка не играет
func (u *meetingUsecase) GetMusicState(ctx context.Context, meetingID, userID uuid.UUID) (*models.MusicState, error) {
	if _, err := u.meetings.GetActiveParticipant(ctx, meetingID, userID); err != nil {
		return nil, err
	}

	state, ok, err := u.music.Get(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("get music state: %w", err)
	}

	if !ok {
		return nil, nil
	}

	return &state, nil
}

// StartRecording переводит запись в STARTING под блокировкой встречи, затем обращается
// к провайдеру вне критической секции
func (u *meetingUsecase) StartRecording(ctx context.Context, meetingID, userID uuid.UUID) (models.RecordingState, error) {
	if u.media == nil || !u.media.Configured() {
		return models.RecordingState{}, domain.ErrMediaProviderNotConfigured
	}

	var (
		meeting  *models.Meeting
		recorder = u.newUID()
	)

	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, userID, domain.ActionRecording); err != nil {
			return err
		}

		current, ok, err := u.recording.Get(ctx, meetingID)
		if err != nil {
			return fmt.Errorf("get recording state: %w", err)
		}

		if ok && current.Status.InProgress() {
			return domain.ErrRecordingAlreadyActive
		}

		now := u.clock.Now()

		meeting = tx.Meeting()

		return u.recording.Set(ctx, meetingID, models.RecordingState{
			RecorderUID: recorder,
			StartedBy:   userID,
			StartedAt:   &now,
			Status:      models.RecordingStatusStarting,
		})
	})
	if err != nil {
		return models.RecordingState{}, err
	}

	resourceID, sessionID, err := u.startProviderRecording(ctx, meeting.ChannelID, recorder)
	if err != nil {
		return models.RecordingState{}, u.failRecording(ctx, meetingID, "start", err)
	}

	var state models.RecordingState

	err = u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		state, err = u.recording.Update(ctx, meetingID, func(r *models.RecordingState) {
			r.IsRecording = true
			r.ResourceID = resourceID
			r.RecordingID = sessionID
			r.Status = models.RecordingStatusRecording
		})
		if err != nil {
			return fmt.Errorf("update recording state: %w", err)
		}

		return u.setMeetingFlag(ctx, tx, func(m *models.Meeting) *bool { return &m.RecordingEnabled }, true)
	})
	if err != nil {
		return models.RecordingState{}, err
	}

	slog.Info(
		"recording started",
		slog.Any(constant.MeetingID, meetingID),
		slog.String(constant.ChannelID, meeting.ChannelID),
	)

	u.publish(ctx, meetingID, events.Event{
		Name:    events.RecordingStarted,
		Payload: u.payload(meetingID, userID, func(p *events.Payload) { p.Recording = &state }),
	})

	return state, nil
}

func (u *meetingUsecase) startProviderRecording(ctx context.Context, channelID string, recorder uint32) (string, string, error) {
	token, err := u.media.JoinToken(ctx, channelID, recorder, models.TransportRoleSubscriber)
	if err != nil {
		return "", "", fmt.Errorf("issue recorder token: %w", err)
	}

	resourceID, err := u.media.AcquireRecording(ctx, channelID, recorder)
	if err != nil {
		return "", "", fmt.Errorf("acquire recording resource: %w", err)
	}

	sessionID, err := u.media.StartRecording(ctx, channelID, recorder, resourceID, token)
	if err != nil {
		return "", "", fmt.Errorf("start recording: %w", err)
	}

	return resourceID, sessionID, nil
}

func (u *meetingUsecase) StopRecording(ctx context.Context, meetingID, userID uuid.UUID) (models.RecordingState, error) {
	if u.media == nil || !u.media.Configured() {
		return models.RecordingState{}, domain.ErrMediaProviderNotConfigured
	}

	var (
		meeting *models.Meeting
		current models.RecordingState
	)

	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, userID, domain.ActionRecording); err != nil {
			return err
		}

		state, ok, err := u.recording.Get(ctx, meetingID)
		if err != nil {
			return fmt.Errorf("get recording state: %w", err)
		}

		if !ok || state.Status != models.RecordingStatusRecording {
			return domain.ErrRecordingNotActive
		}

		meeting = tx.Meeting()

		current, err = u.recording.Update(ctx, meetingID, func(r *models.RecordingState) {
			r.Status = models.RecordingStatusStopping
		})

		return err
	})
	if err != nil {
		return models.RecordingState{}, err
	}

	files, err := u.media.StopRecording(ctx, meeting.ChannelID, current.RecorderUID, current.ResourceID, current.RecordingID)
	if err != nil {
		return models.RecordingState{}, u.failRecording(ctx, meetingID, "stop", err)
	}

	var state models.RecordingState

	err = u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		now := u.clock.Now()

		state, err = u.recording.Update(ctx, meetingID, func(r *models.RecordingState) {
			r.IsRecording = false
			r.StoppedAt = &now
			r.FileList = files
			r.Status = models.RecordingStatusStopped

			if r.StartedAt != nil {
				r.Duration = int64(now.Sub(*r.StartedAt).Seconds())
			}

			if len(files) > 0 {
				r.StorageURL = files[0]
			}
		})
		if err != nil {
			return fmt.Errorf("update recording state: %w", err)
		}

		return u.setMeetingFlag(ctx, tx, func(m *models.Meeting) *bool { return &m.RecordingEnabled }, false)
	})
	if err != nil {
		return models.RecordingState{}, err
	}

	u.publish(ctx, meetingID, events.Event{
		Name:    events.RecordingStopped,
		Payload: u.payload(meetingID, userID, func(p *events.Payload) { p.Recording = &state }),
	})

	return state, nil
}

// failRecording фиксирует FAILED и возвращает RECORDING_PROVIDER_FAILED. Повтор - на стороне вызывающего.
func (u *meetingUsecase) failRecording(ctx context.Context, meetingID uuid.UUID, op string, cause error) error {
	slog.Error(
		"recording provider failed",
		slog.Any(constant.Error, cause),
		slog.Any(constant.MeetingID, meetingID),
		slog.String(constant.Action, op),
	)

	// флаг встречи снимается в той же критической секции, что и статус записи
	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		_, err := u.recording.Update(ctx, meetingID, func(r *models.RecordingState) {
			r.IsRecording = false
			r.Status = models.RecordingStatusFailed
		})
		if err != nil {
			return fmt.Errorf("update recording state: %w", err)
		}

		return u.setMeetingFlag(ctx, tx, func(m *models.Meeting) *bool { return &m.RecordingEnabled }, false)
	})
	if err != nil {
		slog.Error("mark recording failed", slog.Any(constant.Error, err), slog.Any(constant.MeetingID, meetingID))
	}

	return fmt.Errorf("%s recording: %w", op, errors.Join(domain.ErrRecordingProviderFailed, cause))
}

func (u *meetingUsecase) GetRecordingState(ctx context.Context, meetingID, userID uuid.UUID) (models.RecordingState, error) {
	if _, err := u.meetings.GetActiveParticipant(ctx, meetingID, userID); err != nil {
		return models.RecordingState{}, err
	}

	state, ok, err := u.recording.Get(ctx, meetingID)
	if err != nil {
		return models.RecordingState{}, fmt.Errorf("get recording state: %w", err)
	}

	if !ok {
		return models.RecordingState{Status: models.RecordingStatusStopped}, nil
	}

	return state, nil
}

func (u *meetingUsecase) StartScreenshare(ctx context.Context, meetingID, userID uuid.UUID) error {
	return u.screenshare(ctx, meetingID, userID, events.ScreenshareStarted)
}

func (u *meetingUsecase) StopScreenshare(ctx context.Context, meetingID, userID uuid.UUID) error {
	return u.screenshare(ctx, meetingID, userID, events.ScreenshareStopped)
}

func (u *meetingUsecase) screenshare(ctx context.Context, meetingID, userID uuid.UUID, name string) error {
	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		_, err := authorize(ctx, tx, userID, domain.ActionScreenshare)
		return err
	})
	if err != nil {
		return err
	}

	u.publish(ctx, meetingID, events.Event{Name: name, Payload: u.payload(meetingID, userID, nil)})

	return nil
}

func (u *meetingUsecase) ShareResource(
	ctx context.Context,
	meetingID, userID uuid.UUID,
	in input.ShareResourceInput,
) (models.ResourceShare, error) {
	if !in.Type.Valid() {
		return models.ResourceShare{}, fmt.Errorf("resource type %q: %w", in.Type, domain.ErrValidation)
	}

	if parsed, err := url.ParseRequestURI(in.URL); err != nil || parsed.Host == "" {
		return models.ResourceShare{}, fmt.Errorf("resource url %q: %w", in.URL, domain.ErrValidation)
	}

	if strings.TrimSpace(in.Name) == "" {
		return models.ResourceShare{}, fmt.Errorf("resource name is required: %w", domain.ErrValidation)
	}

	resource := models.ResourceShare{
		ID:          uuid.New(),
		MeetingID:   meetingID,
		Type:        in.Type,
		URL:         in.URL,
		Name:        in.Name,
		Description: in.Description,
		SharedBy:    userID,
		SharedAt:    u.clock.Now(),
	}

	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, userID, domain.ActionShareResource); err != nil {
			return err
		}

		return u.resources.Add(ctx, resource)
	})
	if err != nil {
		return models.ResourceShare{}, err
	}

	u.publish(ctx, meetingID, events.Event{
		Name:    events.ResourceShared,
		Payload: u.payload(meetingID, userID, func(p *events.Payload) { p.Resource = &resource }),
	})

	return resource, nil
}

func (u *meetingUsecase) ListResources(ctx context.Context, meetingID, userID uuid.UUID) ([]models.ResourceShare, error) {
	if _, err := u.meetings.GetActiveParticipant(ctx, meetingID, userID); err != nil {
		return nil, err
	}

	resources, err := u.resources.List(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	return resources, nil
}

// setMeetingFlag синхронизирует флаг встречи с хранилищем состояния, не трогая ее без нужды
func (u *meetingUsecase) setMeetingFlag(
	ctx context.Context,
	tx MeetingTx,
	field func(m *models.Meeting) *bool,
	value bool,
) error {
	m := tx.Meeting()

	flag := field(m)
	if *flag == value {
		return nil
	}

	*flag = value
	m.UpdatedAt = u.clock.Now()

	if err := tx.UpdateMeeting(ctx, m); err != nil {
		return fmt.Errorf("update meeting flags: %w", err)
	}

	return nil
}
