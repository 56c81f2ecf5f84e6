package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

type SessionLogRepository struct {
	db *sql.DB
}

func NewSessionLogRepository(db *sql.DB) *SessionLogRepository {
	return &SessionLogRepository{db: db}
}

func insertSessionLog(ctx context.Context, tx *sql.Tx, log *models.SessionLog) error {
	const query = `
	INSERT INTO session_logs (
		id,
		session_id,
		mentee_id,
		mentor_id,
		course_id,
		duration_minutes,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	RETURNING created_at
	`

	err := tx.QueryRowContext(
		ctx,
		query,
		log.ID,
		log.SessionID,
		log.MenteeID,
		log.MentorID,
		log.CourseID,
		log.DurationMinutes,
	).Scan(&log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert session log: %w", err)
	}
	return nil
}

// SumMinutesByMentor totals every recorded duration of the mentor.
func (r *SessionLogRepository) SumMinutesByMentor(ctx context.Context, mentorID uuid.UUID) (int, error) {
	const query = `
	SELECT COALESCE(SUM(duration_minutes), 0)
	FROM session_logs
	WHERE mentor_id = $1
	`

	var total int
	if err := r.db.QueryRowContext(ctx, query, mentorID).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum session minutes: %w", err)
	}
	return total, nil
}
