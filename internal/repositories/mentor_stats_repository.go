package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

// MentorStatsRepository persists the denormalised statistics snapshot.
// Only the statistics service writes here.
type MentorStatsRepository struct {
	db *sql.DB
}

func NewMentorStatsRepository(db *sql.DB) *MentorStatsRepository {
	return &MentorStatsRepository{db: db}
}

// Upsert writes the snapshot unless the stored one was stamped later. It
// reports whether the row was written.
func (r *MentorStatsRepository) Upsert(ctx context.Context, stats *models.MentorStatistics) (bool, error) {
	const query = `
	INSERT INTO mentor_statistics (
		mentor_id,
		average_rating,
		total_ratings,
		rating_1,
		rating_2,
		rating_3,
		rating_4,
		rating_5,
		students_helped,
		total_minutes,
		last_updated
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (mentor_id) DO UPDATE SET
		average_rating = EXCLUDED.average_rating,
		total_ratings = EXCLUDED.total_ratings,
		rating_1 = EXCLUDED.rating_1,
		rating_2 = EXCLUDED.rating_2,
		rating_3 = EXCLUDED.rating_3,
		rating_4 = EXCLUDED.rating_4,
		rating_5 = EXCLUDED.rating_5,
		students_helped = EXCLUDED.students_helped,
		total_minutes = EXCLUDED.total_minutes,
		last_updated = EXCLUDED.last_updated
	WHERE mentor_statistics.last_updated <= EXCLUDED.last_updated
	`

	d := stats.RatingDistribution
	res, err := r.db.ExecContext(
		ctx,
		query,
		stats.MentorID,
		stats.AverageRating,
		stats.TotalRatings,
		d[1], d[2], d[3], d[4], d[5],
		stats.StudentsHelped,
		stats.TotalMinutes,
		stats.LastUpdated,
	)
	if err != nil {
		return false, fmt.Errorf("upsert mentor statistics: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert mentor statistics: %w", err)
	}
	return n > 0, nil
}

// Get returns the stored snapshot, or nil when the mentor has none yet.
func (r *MentorStatsRepository) Get(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error) {
	const query = `
	SELECT
		mentor_id,
		average_rating,
		total_ratings,
		rating_1,
		rating_2,
		rating_3,
		rating_4,
		rating_5,
		students_helped,
		total_minutes,
		last_updated
	FROM mentor_statistics
	WHERE mentor_id = $1
	`

	var s models.MentorStatistics
	d := &s.RatingDistribution
	err := r.db.QueryRowContext(ctx, query, mentorID).Scan(
		&s.MentorID,
		&s.AverageRating,
		&s.TotalRatings,
		&d[1], &d[2], &d[3], &d[4], &d[5],
		&s.StudentsHelped,
		&s.TotalMinutes,
		&s.LastUpdated,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get mentor statistics: %w", err)
	}
	return &s, nil
}
