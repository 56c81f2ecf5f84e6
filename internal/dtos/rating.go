package dtos

import "github.com/preetsinghmakkar/PeerConnect/internal/models"

// SubmitRatingRequest takes the rating as given; out-of-range values are
// clamped by the service rather than rejected.
type SubmitRatingRequest struct {
	SessionID string `json:"sessionId" binding:"required,uuid"`
	MentorID  string `json:"mentorId" binding:"required,uuid"`
	Rating    *int   `json:"rating" binding:"required"`
	Feedback  string `json:"feedback" binding:"max=2000"`
}

type RatingPageQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1"`
}

type SubmitRatingResponse struct {
	Rating           *models.Rating `json:"rating"`
	SessionCompleted bool           `json:"sessionCompleted"`
}

type MentorStatsResponse struct {
	Stats *models.MentorStatistics `json:"stats"`
}

type RecomputeResponse struct {
	Mentors   int      `json:"mentors"`
	Succeeded int      `json:"succeeded"`
	Failed    []string `json:"failed"`
}
