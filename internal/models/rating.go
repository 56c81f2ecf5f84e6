package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

type Rating struct {
	ID        uuid.UUID `db:"id" json:"id"`
	SessionID uuid.UUID `db:"session_id" json:"sessionId"`
	MenteeID  uuid.UUID `db:"mentee_id" json:"menteeId"`
	MentorID  uuid.UUID `db:"mentor_id" json:"mentorId"`
	Rating    int       `db:"rating" json:"rating"`
	Feedback  string    `db:"feedback" json:"feedback,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// ClampRating forces v into [MinRating, MaxRating].
func ClampRating(v int) int {
	if v < MinRating {
		return MinRating
	}
	if v > MaxRating {
		return MaxRating
	}
	return v
}
