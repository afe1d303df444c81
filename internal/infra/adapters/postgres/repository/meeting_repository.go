package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/input"
	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

const uniqueViolation = "23505"

var errDuplicateParticipant = errors.New("active participant already exists")

const (
	meetingColumns = `id, title, description, host_id, channel_id, status, is_locked, max_participants,
		music_enabled, recording_enabled, scheduled_start, started_at, ended_at, created_at, updated_at`

	participantColumns = `id, meeting_id, user_id, role, is_muted, has_raised_hand, transport_uid, joined_at, left_at`
)

// queryer - общее подмножество *sqlx.DB и *sqlx.Tx
type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type MeetingRepository struct {
	db *sqlx.DB
}

func NewMeetingRepository(db *sqlx.DB) *MeetingRepository {
	return &MeetingRepository{db: db}
}

func (r *MeetingRepository) Create(ctx context.Context, meeting *models.Meeting, host *models.Participant) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO meetings (`+meetingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		meeting.ID,
		meeting.Title,
		meeting.Description,
		meeting.HostID,
		meeting.ChannelID,
		meeting.Status,
		meeting.IsLocked,
		meeting.MaxParticipants,
		meeting.MusicEnabled,
		meeting.RecordingEnabled,
		meeting.ScheduledStart,
		meeting.StartedAt,
		meeting.EndedAt,
		meeting.CreatedAt,
		meeting.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert meeting: %w", err)
	}

	if err := insertParticipant(ctx, tx, host); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit meeting: %w", err)
	}

	return nil
}

func (r *MeetingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Meeting, error) {
	return getMeeting(ctx, r.db, id, false)
}

func (r *MeetingRepository) List(ctx context.Context, filter input.ListMeetingsFilter) ([]*models.Meeting, error) {
	var (
		where []string
		args  []any
	)

	if filter.HostID != nil {
		args = append(args, *filter.HostID)
		where = append(where, fmt.Sprintf("host_id = $%d", len(args)))
	}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := "SELECT " + meetingColumns + " FROM meetings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	meetings := []*models.Meeting{}

	if err := r.db.SelectContext(ctx, &meetings, query, args...); err != nil {
		return nil, fmt.Errorf("select meetings: %w", err)
	}

	return meetings, nil
}

func (r *MeetingRepository) GetActiveParticipant(ctx context.Context, meetingID, userID uuid.UUID) (*models.Participant, error) {
	return getActiveParticipant(ctx, r.db, meetingID, userID)
}

func (r *MeetingRepository) ListActiveParticipants(ctx context.Context, meetingID uuid.UUID) ([]*models.Participant, error) {
	return listActiveParticipants(ctx, r.db, meetingID)
}

// WithinMeeting блокирует строку встречи (SELECT ... FOR UPDATE) на время fn.
// Проверка вместимости и вставка участника выполняются в одной транзакции.
func (r *MeetingRepository) WithinMeeting(
	ctx context.Context,
	meetingID uuid.UUID,
	fn func(tx usecase.MeetingTx) error,
) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	meeting, err := getMeeting(ctx, tx, meetingID, true)
	if err != nil {
		return err
	}

	if err := fn(&meetingTx{tx: tx, meeting: meeting}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

type meetingTx struct {
	tx      *sqlx.Tx
	meeting *models.Meeting
}

func (t *meetingTx) Meeting() *models.Meeting {
	return t.meeting.Clone()
}

func (t *meetingTx) UpdateMeeting(ctx context.Context, meeting *models.Meeting) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE meetings
		SET title = $1, description = $2, status = $3, is_locked = $4, max_participants = $5,
			music_enabled = $6, recording_enabled = $7, started_at = $8, ended_at = $9, updated_at = $10
		WHERE id = $11`,
		meeting.Title,
		meeting.Description,
		meeting.Status,
		meeting.IsLocked,
		meeting.MaxParticipants,
		meeting.MusicEnabled,
		meeting.RecordingEnabled,
		meeting.StartedAt,
		meeting.EndedAt,
		meeting.UpdatedAt,
		meeting.ID,
	)
	if err != nil {
		return fmt.Errorf("update meeting: %w", err)
	}

	t.meeting = meeting.Clone()

	return nil
}

func (t *meetingTx) CountActiveParticipants(ctx context.Context) (int, error) {
	var n int

	err := t.tx.GetContext(
		ctx,
		&n,
		"SELECT COUNT(*) FROM meeting_participants WHERE meeting_id = $1 AND left_at IS NULL",
		t.meeting.ID,
	)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}

	return n, nil
}

func (t *meetingTx) GetActiveParticipant(ctx context.Context, userID uuid.UUID) (*models.Participant, error) {
	return getActiveParticipant(ctx, t.tx, t.meeting.ID, userID)
}

func (t *meetingTx) ListActiveParticipants(ctx context.Context) ([]*models.Participant, error) {
	return listActiveParticipants(ctx, t.tx, t.meeting.ID)
}

func (t *meetingTx) AddParticipant(ctx context.Context, participant *models.Participant) error {
	return insertParticipant(ctx, t.tx, participant)
}

func (t *meetingTx) UpdateParticipant(ctx context.Context, p *models.Participant) error {
	res, err := t.tx.ExecContext(
		ctx,
		"UPDATE meeting_participants SET role = $1, is_muted = $2, has_raised_hand = $3 WHERE id = $4",
		p.Role,
		p.IsMuted,
		p.HasRaisedHand,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update participant: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotParticipant
	}

	return nil
}

func (t *meetingTx) CloseParticipant(ctx context.Context, userID uuid.UUID, leftAt time.Time) (bool, error) {
	res, err := t.tx.ExecContext(
		ctx,
		"UPDATE meeting_participants SET left_at = $1 WHERE meeting_id = $2 AND user_id = $3 AND left_at IS NULL",
		leftAt,
		t.meeting.ID,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("close participant: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close participant rows: %w", err)
	}

	return n > 0, nil
}

func getMeeting(ctx context.Context, q queryer, id uuid.UUID, forUpdate bool) (*models.Meeting, error) {
	query := "SELECT " + meetingColumns + " FROM meetings WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var m models.Meeting

	err := q.GetContext(ctx, &m, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMeetingNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}

	return &m, nil
}

func getActiveParticipant(ctx context.Context, q queryer, meetingID, userID uuid.UUID) (*models.Participant, error) {
	var p models.Participant

	err := q.GetContext(
		ctx,
		&p,
		"SELECT "+participantColumns+" FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2 AND left_at IS NULL",
		meetingID,
		userID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotParticipant
	}

	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	return &p, nil
}

func listActiveParticipants(ctx context.Context, q queryer, meetingID uuid.UUID) ([]*models.Participant, error) {
	participants := []*models.Participant{}

	err := q.SelectContext(
		ctx,
		&participants,
		"SELECT "+participantColumns+" FROM meeting_participants WHERE meeting_id = $1 AND left_at IS NULL ORDER BY joined_at",
		meetingID,
	)
	if err != nil {
		return nil, fmt.Errorf("select participants: %w", err)
	}

	return participants, nil
}

func insertParticipant(ctx context.Context, q queryer, p *models.Participant) error {
	_, err := q.ExecContext(
		ctx,
		`INSERT INTO meeting_participants (`+participantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID,
		p.MeetingID,
		p.UserID,
		p.Role,
		p.IsMuted,
		p.HasRaisedHand,
		int64(p.TransportUID),
		p.JoinedAt,
		p.LeftAt,
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return errDuplicateParticipant
	}

	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}

	return nil
}
