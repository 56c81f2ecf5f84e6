package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/database"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

const ratingSessionConstraint = "ratings_session_id_key"

type RatingRepository struct {
	db *sql.DB
}

func NewRatingRepository(db *sql.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// GetBySessionID returns the rating of a session, or nil when none exists.
func (r *RatingRepository) GetBySessionID(ctx context.Context, sessionID uuid.UUID) (*models.Rating, error) {
	const query = `
	SELECT id, session_id, mentee_id, mentor_id, rating, feedback, created_at
	FROM ratings
	WHERE session_id = $1
	`

	var rating models.Rating
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&rating.ID,
		&rating.SessionID,
		&rating.MenteeID,
		&rating.MentorID,
		&rating.Rating,
		&rating.Feedback,
		&rating.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &rating, nil
}

// CreateAndComplete inserts the rating and, in the same transaction, moves
// the session from pending_rating to completed. It reports whether that
// transition happened. A second rating for the session fails on the unique
// constraint and surfaces as a duplicate-rating error.
func (r *RatingRepository) CreateAndComplete(ctx context.Context, rating *models.Rating) (bool, error) {
	const insertQuery = `
	INSERT INTO ratings (
		id,
		session_id,
		mentee_id,
		mentor_id,
		rating,
		feedback,
		created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	RETURNING created_at
	`

	const completeQuery = `
	UPDATE sessions
	SET status = $1, updated_at = NOW()
	WHERE id = $2 AND status = $3
	`

	completed := false
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(
			ctx,
			insertQuery,
			rating.ID,
			rating.SessionID,
			rating.MenteeID,
			rating.MentorID,
			rating.Rating,
			rating.Feedback,
		).Scan(&rating.CreatedAt)
		if database.IsUniqueViolation(err, ratingSessionConstraint) {
			return apperrors.New(apperrors.KindDuplicateRating, "session has already been rated")
		}
		if err != nil {
			return fmt.Errorf("insert rating: %w", err)
		}

		res, err := tx.ExecContext(
			ctx,
			completeQuery,
			models.SessionStatusCompleted,
			rating.SessionID,
			models.SessionStatusPendingRating,
		)
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("complete session: %w", err)
		}
		completed = n == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

// ListByMentor pages through a mentor's ratings, newest first.
func (r *RatingRepository) ListByMentor(ctx context.Context, mentorID uuid.UUID, offset, limit int) ([]models.Rating, int, error) {
	const countQuery = `SELECT COUNT(*) FROM ratings WHERE mentor_id = $1`

	const query = `
	SELECT id, session_id, mentee_id, mentor_id, rating, feedback, created_at
	FROM ratings
	WHERE mentor_id = $1
	ORDER BY created_at DESC
	OFFSET $2
	LIMIT $3
	`

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, mentorID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ratings: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, mentorID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list ratings: %w", err)
	}
	defer rows.Close()

	ratings := make([]models.Rating, 0, limit)
	for rows.Next() {
		var rating models.Rating
		if err := rows.Scan(
			&rating.ID,
			&rating.SessionID,
			&rating.MenteeID,
			&rating.MentorID,
			&rating.Rating,
			&rating.Feedback,
			&rating.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	return ratings, total, rows.Err()
}

// Distribution counts the mentor's ratings per star value.
func (r *RatingRepository) Distribution(ctx context.Context, mentorID uuid.UUID) (models.RatingDistribution, error) {
	const query = `
	SELECT rating, COUNT(*)
	FROM ratings
	WHERE mentor_id = $1
	GROUP BY rating
	`

	var dist models.RatingDistribution
	rows, err := r.db.QueryContext(ctx, query, mentorID)
	if err != nil {
		return dist, fmt.Errorf("rating distribution: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var star, count int
		if err := rows.Scan(&star, &count); err != nil {
			return dist, fmt.Errorf("scan rating distribution: %w", err)
		}
		if star >= models.MinRating && star <= models.MaxRating {
			dist[star] = count
		}
	}
	return dist, rows.Err()
}
