package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/dtos"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/services"
)

// RatingLedger is implemented by services.RatingService.
type RatingLedger interface {
	Submit(ctx context.Context, menteeID uuid.UUID, in services.SubmitRatingInput) (*services.SubmitRatingResult, error)
	ListForMentor(ctx context.Context, mentorID uuid.UUID, page, limit int) (*services.MentorRatingsPage, error)
}

// StatsReader is implemented by services.StatsService.
type StatsReader interface {
	Get(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error)
}

type RatingHandler struct {
	ratings RatingLedger
	stats   StatsReader
}

func NewRatingHandler(ratings RatingLedger, stats StatsReader) *RatingHandler {
	return &RatingHandler{ratings: ratings, stats: stats}
}

// POST /api/ratings
func (h *RatingHandler) SubmitRating(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req dtos.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	res, err := h.ratings.Submit(c.Request.Context(), id.UserID, services.SubmitRatingInput{
		SessionID: uuid.MustParse(req.SessionID),
		MentorID:  uuid.MustParse(req.MentorID),
		Rating:    *req.Rating,
		Feedback:  req.Feedback,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dtos.SubmitRatingResponse{
		Rating:           res.Rating,
		SessionCompleted: res.SessionCompleted,
	})
}

// GET /api/ratings/:mentorId?page=&limit=
func (h *RatingHandler) ListMentorRatings(c *gin.Context) {
	mentorID, ok := pathUUID(c, "mentorId")
	if !ok {
		return
	}

	var q dtos.RatingPageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	page, err := h.ratings.ListForMentor(c.Request.Context(), mentorID, q.Page, q.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// GET /api/ratings/:mentorId/stats
func (h *RatingHandler) GetMentorStats(c *gin.Context) {
	mentorID, ok := pathUUID(c, "mentorId")
	if !ok {
		return
	}

	stats, err := h.stats.Get(c.Request.Context(), mentorID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.MentorStatsResponse{Stats: stats})
}
