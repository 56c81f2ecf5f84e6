package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/dtos"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/services"
)

// SessionLifecycle is implemented by services.SessionService.
type SessionLifecycle interface {
	Request(ctx context.Context, menteeID uuid.UUID, in services.RequestSessionInput) (*models.Session, error)
	Accept(ctx context.Context, sessionID, actorID uuid.UUID, scheduledTime *time.Time) (*models.Session, error)
	End(ctx context.Context, sessionID, actorID uuid.UUID, summary string) (*services.EndSessionResult, error)
	Cancel(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error)
	Get(ctx context.Context, sessionID, actorID uuid.UUID) (*models.Session, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]models.Session, error)
	ListPending(ctx context.Context, actor models.Identity) ([]models.Session, error)
	ListLogs(ctx context.Context, userID uuid.UUID) ([]models.SessionHistoryEntry, error)
}

type SessionHandler struct {
	sessions SessionLifecycle
}

func NewSessionHandler(sessions SessionLifecycle) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// POST /api/sessions/request
func (h *SessionHandler) RequestSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	var req dtos.RequestSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	courseID, err := dtos.ParseOptionalUUID(req.CourseID)
	if err != nil {
		respondError(c, apperrors.Validation("invalid courseId"))
		return
	}

	session, err := h.sessions.Request(c.Request.Context(), id.UserID, services.RequestSessionInput{
		MentorID:      uuid.MustParse(req.MentorID),
		CourseID:      courseID,
		Description:   req.Description,
		PreferredTime: req.PreferredTime,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dtos.SessionResponse{Session: session})
}

// POST /api/sessions/:id/accept
func (h *SessionHandler) AcceptSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dtos.AcceptSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	session, err := h.sessions.Accept(c.Request.Context(), sessionID, id.UserID, req.ScheduledTime)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.SessionResponse{Session: session})
}

// POST /api/sessions/:id/end
func (h *SessionHandler) EndSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req dtos.EndSessionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	res, err := h.sessions.End(c.Request.Context(), sessionID, id.UserID, req.Summary)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.EndSessionResponse{
		Session:         res.Session,
		DurationMinutes: res.DurationMinutes,
		RatingRequired:  res.Session.Status == models.SessionStatusPendingRating,
	})
}

// POST /api/sessions/:id/cancel
func (h *SessionHandler) CancelSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessions.Cancel(c.Request.Context(), sessionID, id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.SessionResponse{Session: session})
}

// GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}
	sessionID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	session, err := h.sessions.Get(c.Request.Context(), sessionID, id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.SessionResponse{Session: session})
}

// GET /api/sessions/active
func (h *SessionHandler) ListActive(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListActive(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.SessionListResponse{Sessions: nonNil(sessions)})
}

// GET /api/sessions/pending
func (h *SessionHandler) ListPending(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListPending(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.SessionListResponse{Sessions: nonNil(sessions)})
}

// GET /api/sessions/logs
func (h *SessionHandler) ListLogs(c *gin.Context) {
	id, ok := identity(c)
	if !ok {
		return
	}

	logs, err := h.sessions.ListLogs(c.Request.Context(), id.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dtos.SessionLogsResponse{Sessions: nonNil(logs)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
