package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

// MeetingRepository хранит встречи в памяти процесса. Данные теряются при перезапуске.
type MeetingRepository struct {
	mu           sync.RWMutex
	meetings     map[uuid.UUID]*models.Meeting
	participants map[uuid.UUID][]*models.Participant

	// locks сериализует WithinMeeting по встрече. Замок заводится при создании встречи.
	locksMu sync.Mutex
	locks   map[uuid.UUID]*sync.Mutex
}

func NewMeetingRepository() *MeetingRepository {
	return &MeetingRepository{
		meetings:     make(map[uuid.UUID]*models.Meeting),
		participants: make(map[uuid.UUID][]*models.Participant),
		locks:        make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *MeetingRepository) Create(_ context.Context, meeting *models.Meeting, host *models.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.meetings[meeting.ID] = meeting.Clone()
	r.participants[meeting.ID] = []*models.Participant{host.Clone()}

	r.locksMu.Lock()
	r.locks[meeting.ID] = &sync.Mutex{}
	r.locksMu.Unlock()

	return nil
}

func (r *MeetingRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.meetings[id]
	if !ok {
		return nil, domain.ErrMeetingNotFound
	}

	return m.Clone(), nil
}

func (r *MeetingRepository) List(_ context.Context, filter input.ListMeetingsFilter) ([]*models.Meeting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Meeting, 0, len(r.meetings))

	for _, m := range r.meetings {
		if filter.HostID != nil && m.HostID != *filter.HostID {
			continue
		}

		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}

		result = append(result, m.Clone())
	}

	slices.SortFunc(result, func(a, b *models.Meeting) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

func (r *MeetingRepository) GetActiveParticipant(_ context.Context, meetingID, userID uuid.UUID) (*models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.activeParticipant(meetingID, userID)
}

func (r *MeetingRepository) ListActiveParticipants(_ context.Context, meetingID uuid.UUID) ([]*models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.activeParticipants(meetingID), nil
}

func (r *MeetingRepository) WithinMeeting(
	ctx context.Context,
	meetingID uuid.UUID,
	fn func(tx usecase.MeetingTx) error,
) error {
	lock, ok := r.meetingLock(meetingID)
	if !ok {
		return domain.ErrMeetingNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := r.GetByID(ctx, meetingID)
	if err != nil {
		return err
	}

	return fn(&meetingTx{repo: r, meeting: m})
}

func (r *MeetingRepository) meetingLock(meetingID uuid.UUID) (*sync.Mutex, bool) {
	r.locksMu.Lock()
	defer r.locksMu.Unlock()

	l, ok := r.locks[meetingID]

	return l, ok
}

func (r *MeetingRepository) activeParticipant(meetingID, userID uuid.UUID) (*models.Participant, error) {
	for _, p := range r.participants[meetingID] {
		if p.UserID == userID && p.IsActive() {
			return p.Clone(), nil
		}
	}

	return nil, domain.ErrNotParticipant
}

func (r *MeetingRepository) activeParticipants(meetingID uuid.UUID) []*models.Participant {
	result := make([]*models.Participant, 0, len(r.participants[meetingID]))

	for _, p := range r.participants[meetingID] {
		if p.IsActive() {
			result = append(result, p.Clone())
		}
	}

	return result
}

// meetingTx работает под блокировкой встречи, поэтому проверка и запись не разделены другими вызовами
type meetingTx struct {
	repo    *MeetingRepository
	meeting *models.Meeting
}

func (t *meetingTx) Meeting() *models.Meeting {
	return t.meeting.Clone()
}

func (t *meetingTx) UpdateMeeting(_ context.Context, meeting *models.Meeting) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	t.meeting = meeting.Clone()
	t.repo.meetings[meeting.ID] = meeting.Clone()

	return nil
}

func (t *meetingTx) CountActiveParticipants(_ context.Context) (int, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	n := 0

	for _, p := range t.repo.participants[t.meeting.ID] {
		if p.IsActive() {
			n++
		}
	}

	return n, nil
}

func (t *meetingTx) GetActiveParticipant(_ context.Context, userID uuid.UUID) (*models.Participant, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	return t.repo.activeParticipant(t.meeting.ID, userID)
}

func (t *meetingTx) ListActiveParticipants(_ context.Context) ([]*models.Participant, error) {
	t.repo.mu.RLock()
	defer t.repo.mu.RUnlock()

	return t.repo.activeParticipants(t.meeting.ID), nil
}

func (t *meetingTx) AddParticipant(_ context.Context, participant *models.Participant) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	if _, err := t.repo.activeParticipant(t.meeting.ID, participant.UserID); err == nil {
		return errDuplicateParticipant
	}

	t.repo.participants[t.meeting.ID] = append(t.repo.participants[t.meeting.ID], participant.Clone())

	return nil
}

func (t *meetingTx) UpdateParticipant(_ context.Context, participant *models.Participant) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for i, p := range t.repo.participants[t.meeting.ID] {
		if p.ID == participant.ID {
			t.repo.participants[t.meeting.ID][i] = participant.Clone()
			return nil
		}
	}

	return domain.ErrNotParticipant
}

func (t *meetingTx) CloseParticipant(_ context.Context, userID uuid.UUID, leftAt time.Time) (bool, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for _, p := range t.repo.participants[t.meeting.ID] {
		if p.UserID == userID && p.IsActive() {
			at := leftAt
			p.LeftAt = &at

			return true, nil
		}
	}

	return false, nil
}
