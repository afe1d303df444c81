package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/RoomMeet/internal/domain"
	"github.com/qrave1/RoomMeet/internal/domain/models"
	"github.com/qrave1/RoomMeet/internal/usecase"
)

func newMock(t *testing.T) (*MeetingRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}

		_ = db.Close()
	})

	return NewMeetingRepository(sqlx.NewDb(db, "pgx")), mock
}

var meetingRowColumns = []string{
	"id", "title", "description", "host_id", "channel_id", "status", "is_locked", "max_participants",
	"music_enabled", "recording_enabled", "scheduled_start", "started_at", "ended_at", "created_at", "updated_at",
}

func meetingRow(m *models.Meeting) *sqlmock.Rows {
	var limit any
	if m.MaxParticipants != nil {
		limit = int64(*m.MaxParticipants)
	}

	return sqlmock.NewRows(meetingRowColumns).AddRow(
		m.ID.String(), m.Title, m.Description, m.HostID.String(), m.ChannelID, string(m.Status), m.IsLocked,
		limit, m.MusicEnabled, m.RecordingEnabled, nil, nil, nil, m.CreatedAt, m.UpdatedAt,
	)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMock(t)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(meetingRowColumns))

	if _, err := repo.GetByID(context.Background(), id); !errors.Is(err, domain.ErrMeetingNotFound) {
		t.Fatalf("err = %v, want MEETING_NOT_FOUND", err)
	}
}

func TestWithinMeetingLocksRowAndCommits(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	limit := 2
	m := models.NewMeeting(uuid.New(), "standup", now)
	m.MaxParticipants = &limit
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM meetings WHERE id = $1 FOR UPDATE")).
		WithArgs(m.ID).
		WillReturnRows(meetingRow(m))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM meeting_participants")).
		WithArgs(m.ID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO meeting_participants")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinMeeting(context.Background(), m.ID, func(tx usecase.MeetingTx) error {
		if tx.Meeting().ChannelID != m.ChannelID {
			t.Fatalf("meeting = %+v", tx.Meeting())
		}

		n, err := tx.CountActiveParticipants(context.Background())
		if err != nil || n != 1 {
			t.Fatalf("count = %d, %v", n, err)
		}

		return tx.AddParticipant(context.Background(), models.NewParticipant(m.ID, userID, models.RoleListener, 42, now))
	})
	if err != nil {
		t.Fatalf("within meeting: %v", err)
	}
}

func TestWithinMeetingRollsBackOnError(t *testing.T) {
	repo, mock := newMock(t)
	m := models.NewMeeting(uuid.New(), "standup", time.Now())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(m.ID).
		WillReturnRows(meetingRow(m))
	mock.ExpectRollback()

	err := repo.WithinMeeting(context.Background(), m.ID, func(usecase.MeetingTx) error {
		return domain.ErrMeetingFull
	})
	if !errors.Is(err, domain.ErrMeetingFull) {
		t.Fatalf("err = %v", err)
	}
}

func TestCloseParticipant(t *testing.T) {
	repo, mock := newMock(t)
	m := models.NewMeeting(uuid.New(), "standup", time.Now())
	userID := uuid.New()
	leftAt := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(m.ID).
		WillReturnRows(meetingRow(m))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE meeting_participants SET left_at = $1")).
		WithArgs(leftAt, m.ID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE meeting_participants SET left_at = $1")).
		WithArgs(leftAt, m.ID, userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.WithinMeeting(context.Background(), m.ID, func(tx usecase.MeetingTx) error {
		closed, err := tx.CloseParticipant(context.Background(), userID, leftAt)
		if err != nil || !closed {
			t.Fatalf("first close = %v, %v", closed, err)
		}

		closed, err = tx.CloseParticipant(context.Background(), userID, leftAt)
		if err != nil || closed {
			t.Fatalf("second close = %v, %v", closed, err)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("within meeting: %v", err)
	}
}

func TestGetActiveParticipantNotFound(t *testing.T) {
	repo, mock := newMock(t)
	meetingID, userID := uuid.New(), uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("FROM meeting_participants WHERE meeting_id = $1 AND user_id = $2")).
		WithArgs(meetingID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := repo.GetActiveParticipant(context.Background(), meetingID, userID); !errors.Is(err, domain.ErrNotParticipant) {
		t.Fatalf("err = %v, want NOT_PARTICIPANT", err)
	}
}
