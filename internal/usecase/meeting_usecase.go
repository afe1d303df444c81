package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/qrave1/RoomMeet/internal/application/constant"
	"github.com/qrave1/RoomMeet/internal/application/metric"
	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/events"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/domain/output"
)

const maxTransportUID = 1_000_000

type MeetingUsecase interface {
	CreateMeeting(ctx context.Context, hostID uuid.UUID, in input.CreateMeetingInput) (*models.Meeting, error)
	GetMeeting(ctx context.Context, meetingID uuid.UUID) (*models.Meeting, error)
	ListMeetings(ctx context.Context, filter input.ListMeetingsFilter) ([]*models.Meeting, error)
	ListParticipants(ctx context.Context, meetingID uuid.UUID) ([]*models.Participant, error)
	GetMeetingState(ctx context.Context, meetingID, userID uuid.UUID) (*output.MeetingState, error)

	JoinMeeting(ctx context.Context, userID, meetingID uuid.UUID, requestedRole *models.Role) (*output.JoinResult, error)
	LeaveMeeting(ctx context.Context, meetingID, userID uuid.UUID) error
	CancelMeeting(ctx context.Context, meetingID, userID uuid.UUID) error

	ControlMeeting(ctx context.Context, meetingID, actorID uuid.UUID, in input.ControlMeetingInput) error
	RaiseHand(ctx context.Context, meetingID, userID uuid.UUID) error
	LowerHand(ctx context.Context, meetingID, userID uuid.UUID) error

	StartMusic(ctx context.Context, meetingID, userID uuid.UUID, in input.StartMusicInput) (models.MusicState, error)
	StopMusic(ctx context.Context, meetingID, userID uuid.UUID) error
	UpdateMusicVolume(ctx context.Context, meetingID, userID uuid.UUID, volume int) (models.MusicState, error)
	GetMusicState(ctx context.Context, meetingID, userID uuid.UUID) (*models.MusicState, error)

	StartRecording(ctx context.Context, meetingID, userID uuid.UUID) (models.RecordingState, error)
	StopRecording(ctx context.Context, meetingID, userID uuid.UUID) (models.RecordingState, error)
	GetRecordingState(ctx context.Context, meetingID, userID uuid.UUID) (models.RecordingState, error)

	StartScreenshare(ctx context.Context, meetingID, userID uuid.UUID) error
	StopScreenshare(ctx context.Context, meetingID, userID uuid.UUID) error

	ShareResource(ctx context.Context, meetingID, userID uuid.UUID, in input.ShareResourceInput) (models.ResourceShare, error)
	ListResources(ctx context.Context, meetingID, userID uuid.UUID) ([]models.ResourceShare, error)
}

type meetingUsecase struct {
	meetings  MeetingRepository
	music     MusicStateRepository
	recording RecordingStateRepository
	resources ResourceShareRepository

	media       MediaProvider
	broadcaster Broadcaster
	reconnect   ReconnectionCanceler
	clock       clockwork.Clock

	// newUID выдает числовой идентификатор транспорта в [1, maxTransportUID)
	newUID func() uint32
}

// NewMeetingUsecase создает оркестратор встреч. Все зависимости передаются явно.
func NewMeetingUsecase(
	meetings MeetingRepository,
	music MusicStateRepository,
	recording RecordingStateRepository,
	resources ResourceShareRepository,
	media MediaProvider,
	broadcaster Broadcaster,
	reconnect ReconnectionCanceler,
	clock clockwork.Clock,
) MeetingUsecase {
	return &meetingUsecase{
		meetings:    meetings,
		music:       music,
		recording:   recording,
		resources:   resources,
		media:       media,
		broadcaster: broadcaster,
		reconnect:   reconnect,
		clock:       clock,
		newUID: func() uint32 {
			return rand.Uint32N(maxTransportUID-1) + 1
		},
	}
}

func (u *meetingUsecase) CreateMeeting(
	ctx context.Context,
	hostID uuid.UUID,
	in input.CreateMeetingInput,
) (*models.Meeting, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", domain.ErrValidation)
	}

	if in.MaxParticipants != nil && *in.MaxParticipants <= 0 {
		return nil, fmt.Errorf("max participants must be positive: %w", domain.ErrValidation)
	}

	now := u.clock.Now()

	meeting := models.NewMeeting(hostID, title, now)
	meeting.Description = in.Description
	meeting.MaxParticipants = in.MaxParticipants
	meeting.ScheduledStart = in.ScheduledStart

	host := models.NewParticipant(meeting.ID, hostID, models.RoleHost, u.newUID(), now)

	if err := u.meetings.Create(ctx, meeting, host); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	slog.Info(
		"meeting created",
		slog.Any(constant.MeetingID, meeting.ID),
		slog.Any(constant.UserID, hostID),
		slog.String(constant.ChannelID, meeting.ChannelID),
	)

	return meeting, nil
}

func (u *meetingUsecase) GetMeeting(ctx context.Context, meetingID uuid.UUID) (*models.Meeting, error) {
	return u.meetings.GetByID(ctx, meetingID)
}

func (u *meetingUsecase) ListMeetings(ctx context.Context, filter input.ListMeetingsFilter) ([]*models.Meeting, error) {
	meetings, err := u.meetings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}

	return meetings, nil
}

func (u *meetingUsecase) ListParticipants(ctx context.Context, meetingID uuid.UUID) ([]*models.Participant, error) {
	if _, err := u.meetings.GetByID(ctx, meetingID); err != nil {
		return nil, err
	}

	return u.meetings.ListActiveParticipants(ctx, meetingID)
}

// GetMeetingState собирает снимок встречи для клиента, пропустившего события
func (u *meetingUsecase) GetMeetingState(ctx context.Context, meetingID, userID uuid.UUID) (*output.MeetingState, error) {
	meeting, err := u.meetings.GetByID(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if _, err := u.meetings.GetActiveParticipant(ctx, meetingID, userID); err != nil {
		return nil, err
	}

	participants, err := u.meetings.ListActiveParticipants(ctx, meetingID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	state := &output.MeetingState{
		Meeting:      meeting,
		Participants: participants,
	}

	if music, ok, err := u.music.Get(ctx, meetingID); err != nil {
		return nil, fmt.Errorf("get music state: %w", err)
	} else if ok {
		state.Music = &music
	}

	if rec, ok, err := u.recording.Get(ctx, meetingID); err != nil {
		return nil, fmt.Errorf("get recording state: %w", err)
	} else if ok {
		state.Recording = &rec
	}

	if state.Resources, err = u.resources.List(ctx, meetingID); err != nil {
		return nil, fmt.Errorf("list resources: %w", err)
	}

	return state, nil
}

func (u *meetingUsecase) JoinMeeting(
	ctx context.Context,
	userID, meetingID uuid.UUID,
	requestedRole *models.Role,
) (*output.JoinResult, error) {
	var (
		meeting     *models.Meeting
		participant *models.Participant
		created     bool
	)

	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		m := tx.Meeting()
		isHost := m.HostID == userID

		if m.IsLocked && !isHost {
			return domain.ErrMeetingLocked
		}

		if m.Status.IsTerminal() {
			return domain.ErrMeetingEnded
		}

		existing, err := tx.GetActiveParticipant(ctx, userID)
		switch {
		case err == nil:
			participant = existing
		case errors.Is(err, domain.ErrNotParticipant):
		default:
			return fmt.Errorf("get participant: %w", err)
		}

		now := u.clock.Now()

		if participant == nil {
			count, err := tx.CountActiveParticipants(ctx)
			if err != nil {
				return fmt.Errorf("count participants: %w", err)
			}

			if m.IsFull(count) {
				return domain.ErrMeetingFull
			}

			participant = models.NewParticipant(meetingID, userID, joinRole(isHost, requestedRole), u.newUID(), now)

			if err := tx.AddParticipant(ctx, participant); err != nil {
				return fmt.Errorf("add participant: %w", err)
			}

			created = true
		}

		if m.Start(now) {
			if err := tx.UpdateMeeting(ctx, m); err != nil {
				return fmt.Errorf("activate meeting: %w", err)
			}
		}

		meeting = m

		return nil
	})
	if err != nil {
		metric.IncMeetingJoin(resultLabel(err))
		return nil, err
	}

	metric.IncMeetingJoin("ok")

	u.reconnect.Clear(userID)

	if created {
		u.publish(ctx, meetingID, events.Event{
			Name:    events.ParticipantJoined,
			Payload: u.payload(meetingID, userID, func(p *events.Payload) { p.Participant = participant }),
		})
	}

	token, degraded := u.issueToken(ctx, meeting, participant)

	return &output.JoinResult{
		Meeting:      meeting,
		Participant:  participant,
		Token:        token,
		TransportUID: participant.TransportUID,
		Degraded:     degraded,
	}, nil
}

// joinRole: хост всегда HOST, остальные могут запросить только непривилегированную роль
func joinRole(isHost bool, requested *models.Role) models.Role {
	if isHost {
		return models.RoleHost
	}

	if requested != nil {
		switch *requested {
		case models.RoleSpeaker, models.RoleListener, models.RoleMusicHost:
			return *requested
		}
	}

	return models.RoleListener
}

// issueToken запрашивает токен у медиа-провайдера. При недоступности провайдера
// выдается детерминированный токен-заглушка, вход не прерывается.
func (u *meetingUsecase) issueToken(
	ctx context.Context,
	meeting *models.Meeting,
	p *models.Participant,
) (string, bool) {
	if u.media == nil || !u.media.Configured() {
		slog.Debug(
			"media provider not configured, issuing placeholder token",
			slog.Any(constant.MeetingID, meeting.ID),
		)

		return domain.PlaceholderToken(meeting.ChannelID, p.TransportUID), true
	}

	token, err := u.media.JoinToken(ctx, meeting.ChannelID, p.TransportUID, models.TransportRoleFor(p.Role))
	if err != nil {
		slog.Warn(
			"issue media token, falling back to placeholder",
			slog.Any(constant.Error, err),
			slog.Any(constant.MeetingID, meeting.ID),
			slog.Any(constant.UserID, p.UserID),
		)

		return domain.PlaceholderToken(meeting.ChannelID, p.TransportUID), true
	}

	return token, false
}

func (u *meetingUsecase) LeaveMeeting(ctx context.Context, meetingID, userID uuid.UUID) error {
	left, closed, err := u.closeParticipant(ctx, meetingID, userID, nil)
	if err != nil {
		return err
	}

	u.reconnect.Clear(userID)

	if !left {
		return nil
	}

	u.afterParticipantClosed(ctx, meetingID, userID, nil, closed)

	return nil
}

// closeParticipant закрывает запись участника и завершает встречу, если она опустела:
// ACTIVE -> ENDED, не начавшаяся SCHEDULED -> CANCELLED. closed - новый статус встречи или пустая строка.
// guard выполняется внутри критической секции до закрытия.
func (u *meetingUsecase) closeParticipant(
	ctx context.Context,
	meetingID, userID uuid.UUID,
	guard func(tx MeetingTx) error,
) (left bool, closed models.MeetingStatus, err error) {
	err = u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if guard != nil {
			if err := guard(tx); err != nil {
				return err
			}
		}

		now := u.clock.Now()

		participantClosed, err := tx.CloseParticipant(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("close participant: %w", err)
		}

		if !participantClosed {
			return nil
		}

		left = true

		count, err := tx.CountActiveParticipants(ctx)
		if err != nil {
			return fmt.Errorf("count participants: %w", err)
		}

		if count > 0 {
			return nil
		}

		m := tx.Meeting()
		if !m.End(now) && !m.Cancel(now) {
			return nil
		}

		if err := tx.UpdateMeeting(ctx, m); err != nil {
			return fmt.Errorf("close meeting: %w", err)
		}

		closed = m.Status

		return nil
	})

	return left, closed, err
}

func (u *meetingUsecase) afterParticipantClosed(
	ctx context.Context,
	meetingID, userID uuid.UUID,
	actorID *uuid.UUID,
	closed models.MeetingStatus,
) {
	evts := []events.Event{{
		Name:    events.ParticipantLeft,
		Payload: u.payload(meetingID, userID, func(p *events.Payload) { p.ActorID = actorID }),
	}}

	if closed != "" {
		if err := u.music.Delete(ctx, meetingID); err != nil {
			slog.Error("delete music state", slog.Any(constant.Error, err), slog.Any(constant.MeetingID, meetingID))
		}

		name := events.MeetingEnded
		if closed == models.MeetingStatusCancelled {
			name = events.MeetingCancelled
		}

		evts = append(evts, events.Event{Name: name, Payload: u.payload(meetingID, userID, nil)})

		slog.Info("meeting closed", slog.Any(constant.MeetingID, meetingID), slog.Any(constant.State, closed))
	}

	u.publish(ctx, meetingID, evts...)
}

func (u *meetingUsecase) CancelMeeting(ctx context.Context, meetingID, userID uuid.UUID) error {
	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, userID, domain.ActionCancel); err != nil {
			return err
		}

		m := tx.Meeting()
		if !m.Cancel(u.clock.Now()) {
			return domain.ErrMeetingEnded
		}

		return tx.UpdateMeeting(ctx, m)
	})
	if err != nil {
		return err
	}

	u.publish(ctx, meetingID, events.Event{Name: events.MeetingCancelled, Payload: u.payload(meetingID, userID, nil)})

	return nil
}

var controlPermissions = map[input.ControlAction]domain.Action{
	input.ControlMute:    domain.ActionMute,
	input.ControlUnmute:  domain.ActionUnmute,
	input.ControlRemove:  domain.ActionRemove,
	input.ControlPromote: domain.ActionPromote,
	input.ControlDemote:  domain.ActionDemote,
	input.ControlLock:    domain.ActionLock,
	input.ControlUnlock:  domain.ActionUnlock,
}

func (u *meetingUsecase) ControlMeeting(
	ctx context.Context,
	meetingID, actorID uuid.UUID,
	in input.ControlMeetingInput,
) error {
	action, ok := controlPermissions[in.Action]
	if !ok {
		return domain.ErrInvalidAction
	}

	var target uuid.UUID
	if in.Action.NeedsTarget() {
		if in.TargetUserID == nil {
			return fmt.Errorf("target user is required for %s: %w", in.Action, domain.ErrValidation)
		}

		target = *in.TargetUserID
	}

	if target == actorID {
		switch in.Action {
		case input.ControlMute:
			action = domain.ActionMuteSelf
		case input.ControlUnmute:
			action = domain.ActionUnmuteSelf
		}
	}

	if in.Action == input.ControlRemove {
		return u.removeParticipant(ctx, meetingID, actorID, target)
	}

	var evt events.Event

	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, actorID, action); err != nil {
			return err
		}

		m := tx.Meeting()

		switch in.Action {
		case input.ControlLock, input.ControlUnlock:
			m.IsLocked = in.Action == input.ControlLock
			m.UpdatedAt = u.clock.Now()

			if err := tx.UpdateMeeting(ctx, m); err != nil {
				return fmt.Errorf("update meeting lock: %w", err)
			}

			name := events.Unlocked
			if m.IsLocked {
				name = events.Locked
			}

			evt = events.Event{Name: name, Payload: u.payload(meetingID, actorID, nil)}

			return nil
		}

		p, err := tx.GetActiveParticipant(ctx, target)
		if err != nil {
			return err
		}

		switch in.Action {
		case input.ControlMute, input.ControlUnmute:
			p.IsMuted = in.Action == input.ControlMute

			evt.Name = events.ParticipantUnmuted
			if p.IsMuted {
				evt.Name = events.ParticipantMuted
			}

		case input.ControlPromote, input.ControlDemote:
			if p.UserID == m.HostID {
				return domain.ErrInsufficientPermissions
			}

			role, err := controlRole(in)
			if err != nil {
				return err
			}

			p.Role = role
			evt.Name = events.HostPromoted
		}

		if err := tx.UpdateParticipant(ctx, p); err != nil {
			return fmt.Errorf("update participant: %w", err)
		}

		evt.Payload = u.payload(meetingID, target, func(pl *events.Payload) {
			pl.ActorID = &actorID
			if evt.Name == events.HostPromoted {
				pl.Role = &p.Role
			}
		})

		return nil
	})
	if err != nil {
		return err
	}

	slog.Info(
		"meeting control applied",
		slog.Any(constant.MeetingID, meetingID),
		slog.Any(constant.UserID, actorID),
		slog.String(constant.Action, string(in.Action)),
	)

	u.publish(ctx, meetingID, evt)

	return nil
}

// controlRole: promote требует роль, demote по умолчанию понижает до LISTENER. HOST не выдается.
func controlRole(in input.ControlMeetingInput) (models.Role, error) {
	if in.Role == nil {
		if in.Action == input.ControlDemote {
			return models.RoleListener, nil
		}

		return "", fmt.Errorf("role is required for promote: %w", domain.ErrValidation)
	}

	if !in.Role.Valid() || *in.Role == models.RoleHost {
		return "", fmt.Errorf("role %q cannot be assigned: %w", *in.Role, domain.ErrValidation)
	}

	return *in.Role, nil
}

func (u *meetingUsecase) removeParticipant(ctx context.Context, meetingID, actorID, target uuid.UUID) error {
	left, closed, err := u.closeParticipant(ctx, meetingID, target, func(tx MeetingTx) error {
		if _, err := authorize(ctx, tx, actorID, domain.ActionRemove); err != nil {
			return err
		}

		if target == tx.Meeting().HostID {
			return domain.ErrInsufficientPermissions
		}

		_, err := tx.GetActiveParticipant(ctx, target)

		return err
	})
	if err != nil {
		return err
	}

	u.reconnect.Clear(target)

	if left {
		u.afterParticipantClosed(ctx, meetingID, target, &actorID, closed)
	}

	return nil
}

func (u *meetingUsecase) RaiseHand(ctx context.Context, meetingID, userID uuid.UUID) error {
	return u.setHand(ctx, meetingID, userID, true)
}

func (u *meetingUsecase) LowerHand(ctx context.Context, meetingID, userID uuid.UUID) error {
	return u.setHand(ctx, meetingID, userID, false)
}

func (u *meetingUsecase) setHand(ctx context.Context, meetingID, userID uuid.UUID, raised bool) error {
	err := u.meetings.WithinMeeting(ctx, meetingID, func(tx MeetingTx) error {
		p, err := authorize(ctx, tx, userID, domain.ActionRaiseHand)
		if err != nil {
			return err
		}

		p.HasRaisedHand = raised

		return tx.UpdateParticipant(ctx, p)
	})
	if err != nil {
		return err
	}

	name := events.HandLowered
	if raised {
		name = events.HandRaised
	}

	u.publish(ctx, meetingID, events.Event{Name: name, Payload: u.payload(meetingID, userID, nil)})

	return nil
}

// authorize перечитывает участника внутри критической секции и проверяет право на действие
func authorize(ctx context.Context, tx MeetingTx, userID uuid.UUID, action domain.Action) (*models.Participant, error) {
	if tx.Meeting().Status.IsTerminal() {
		return nil, domain.ErrMeetingEnded
	}

	p, err := tx.GetActiveParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !domain.CanPerform(p, action) {
		return nil, domain.ErrInsufficientPermissions
	}

	return p, nil
}

func (u *meetingUsecase) payload(meetingID, userID uuid.UUID, fill func(p *events.Payload)) events.Payload {
	p := events.Payload{
		MeetingID: meetingID,
		UserID:    userID,
		Timestamp: u.clock.Now(),
	}

	if fill != nil {
		fill(&p)
	}

	return p
}

// publish рассылает события после фиксации изменений. Ошибка доставки не отменяет операцию.
func (u *meetingUsecase) publish(ctx context.Context, meetingID uuid.UUID, evts ...events.Event) {
	for _, e := range evts {
		if err := u.broadcaster.Broadcast(ctx, meetingID, e.Name, e.Payload); err != nil {
			slog.Error(
				"broadcast meeting event",
				slog.Any(constant.Error, err),
				slog.Any(constant.MeetingID, meetingID),
				slog.String(constant.Event, e.Name),
			)
		}
	}
}

func resultLabel(err error) string {
	if de, ok := domain.AsError(err); ok {
		return de.Code
	}

	return "error"
}
