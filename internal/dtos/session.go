package dtos

import (
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

type RequestSessionRequest struct {
	MentorID      string     `json:"mentorId" binding:"required,uuid"`
	CourseID      string     `json:"courseId" binding:"omitempty,uuid"`
	Description   string     `json:"description" binding:"max=2000"`
	PreferredTime *time.Time `json:"preferredTime"`
}

type AcceptSessionRequest struct {
	ScheduledTime *time.Time `json:"scheduledTime"`
}

type EndSessionRequest struct {
	Summary string `json:"summary" binding:"max=5000"`
}

type SessionResponse struct {
	Session *models.Session `json:"session"`
}

type EndSessionResponse struct {
	Session         *models.Session `json:"session"`
	DurationMinutes int             `json:"durationMinutes"`
	RatingRequired  bool            `json:"ratingRequired"`
}

type SessionListResponse struct {
	Sessions []models.Session `json:"sessions"`
}

type SessionLogsResponse struct {
	Sessions []models.SessionHistoryEntry `json:"sessions"`
}

// ParseOptionalUUID returns nil for an empty string.
func ParseOptionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
