package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/database"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

const sessionColumns = `
		id,
		mentee_id,
		mentor_id,
		course_id,
		description,
		preferred_time,
		summary,
		status,
		scheduled_time,
		started_at,
		ended_at,
		created_at,
		updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// EndSessionParams carries the end-of-session write: the conditional
// status change and its duration log.
type EndSessionParams struct {
	SessionID uuid.UUID
	Status    models.SessionStatus
	Summary   string
	EndedAt   time.Time
	Log       models.SessionLog
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.ID,
		&s.MenteeID,
		&s.MentorID,
		&s.CourseID,
		&s.Description,
		&s.PreferredTime,
		&s.Summary,
		&s.Status,
		&s.ScheduledTime,
		&s.StartedAt,
		&s.EndedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	const query = `
	INSERT INTO sessions (
		id,
		mentee_id,
		mentor_id,
		course_id,
		description,
		preferred_time,
		status,
		created_at,
		updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		session.ID,
		session.MenteeID,
		session.MentorID,
		session.CourseID,
		session.Description,
		session.PreferredTime,
		session.Status,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID loads a session
func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE id = $1
	`

	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// Accept moves a requested session to active. The WHERE clause on status
// makes the transition a compare-and-swap.
func (r *SessionRepository) Accept(ctx context.Context, id uuid.UUID, startedAt time.Time, scheduledTime *time.Time) (*models.Session, error) {
	query := `
	UPDATE sessions
	SET
		status = $1,
		started_at = $2,
		scheduled_time = $3,
		updated_at = NOW()
	WHERE id = $4 AND status = $5
	RETURNING` + sessionColumns

	session, err := scanSession(r.db.QueryRowContext(
		ctx,
		query,
		models.SessionStatusActive,
		startedAt,
		scheduledTime,
		id,
		models.SessionStatusRequested,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.InvalidState("session is no longer awaiting acceptance")
	}
	if err != nil {
		return nil, fmt.Errorf("accept session: %w", err)
	}
	return session, nil
}

// Cancel moves a requested session to cancelled.
func (r *SessionRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	query := `
	UPDATE sessions
	SET
		status = $1,
		ended_at = $2,
		updated_at = NOW()
	WHERE id = $3 AND status = $4
	RETURNING` + sessionColumns

	session, err := scanSession(r.db.QueryRowContext(
		ctx,
		query,
		models.SessionStatusCancelled,
		at,
		id,
		models.SessionStatusRequested,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.InvalidState("only requested sessions can be cancelled")
	}
	if err != nil {
		return nil, fmt.Errorf("cancel session: %w", err)
	}
	return session, nil
}

// End closes an active session and records its duration log in the same
// transaction.
func (r *SessionRepository) End(ctx context.Context, params EndSessionParams) (*models.Session, error) {
	query := `
	UPDATE sessions
	SET
		status = $1,
		summary = $2,
		ended_at = $3,
		updated_at = NOW()
	WHERE id = $4 AND status = $5
	RETURNING` + sessionColumns

	var ended *models.Session
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		session, err := scanSession(tx.QueryRowContext(
			ctx,
			query,
			params.Status,
			params.Summary,
			params.EndedAt,
			params.SessionID,
			models.SessionStatusActive,
		))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.InvalidState("session is not active")
		}
		if err != nil {
			return fmt.Errorf("end session: %w", err)
		}

		if err := insertSessionLog(ctx, tx, &params.Log); err != nil {
			return err
		}

		ended = session
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ended, nil
}

// ListByParticipant returns the sessions userID takes part in whose status
// is one of statuses, newest first.
func (r *SessionRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, statuses []models.SessionStatus) ([]models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE (mentee_id = $1 OR mentor_id = $1) AND status = ANY($2)
	ORDER BY created_at DESC
	`

	return r.list(ctx, query, userID, pq.Array(statusStrings(statuses)))
}

// ListPendingForMentor returns requests awaiting the mentor's answer, oldest first.
func (r *SessionRepository) ListPendingForMentor(ctx context.Context, mentorID uuid.UUID) ([]models.Session, error) {
	query := `SELECT` + sessionColumns + `
	FROM sessions
	WHERE mentor_id = $1 AND status = $2
	ORDER BY created_at ASC
	`

	return r.list(ctx, query, mentorID, models.SessionStatusRequested)
}

// ListHistory returns finished sessions of userID with their durations.
func (r *SessionRepository) ListHistory(ctx context.Context, userID uuid.UUID) ([]models.SessionHistoryEntry, error) {
	const query = `
	SELECT
		s.id,
		s.mentee_id,
		s.mentor_id,
		s.course_id,
		s.description,
		s.preferred_time,
		s.summary,
		s.status,
		s.scheduled_time,
		s.started_at,
		s.ended_at,
		s.created_at,
		s.updated_at,
		COALESCE(l.duration_minutes, 0)
	FROM sessions s
	LEFT JOIN session_logs l ON l.session_id = s.id
	WHERE (s.mentee_id = $1 OR s.mentor_id = $1) AND s.status = ANY($2)
	ORDER BY s.ended_at DESC NULLS LAST
	`

	statuses := []models.SessionStatus{models.SessionStatusCompleted, models.SessionStatusPendingRating}
	rows, err := r.db.QueryContext(ctx, query, userID, pq.Array(statusStrings(statuses)))
	if err != nil {
		return nil, fmt.Errorf("list session history: %w", err)
	}
	defer rows.Close()

	var entries []models.SessionHistoryEntry
	for rows.Next() {
		var e models.SessionHistoryEntry
		if err := rows.Scan(
			&e.ID,
			&e.MenteeID,
			&e.MentorID,
			&e.CourseID,
			&e.Description,
			&e.PreferredTime,
			&e.Summary,
			&e.Status,
			&e.ScheduledTime,
			&e.StartedAt,
			&e.EndedAt,
			&e.CreatedAt,
			&e.UpdatedAt,
			&e.DurationMinutes,
		); err != nil {
			return nil, fmt.Errorf("scan session history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountStudentsHelped counts distinct mentees over the mentor's completed sessions.
func (r *SessionRepository) CountStudentsHelped(ctx context.Context, mentorID uuid.UUID) (int, error) {
	const query = `
	SELECT COUNT(DISTINCT mentee_id)
	FROM sessions
	WHERE mentor_id = $1 AND status = $2
	`

	var count int
	if err := r.db.QueryRowContext(ctx, query, mentorID, models.SessionStatusCompleted).Scan(&count); err != nil {
		return 0, fmt.Errorf("count students helped: %w", err)
	}
	return count, nil
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...any) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func statusStrings(statuses []models.SessionStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
