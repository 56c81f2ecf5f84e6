package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/dtos"
	"github.com/preetsinghmakkar/PeerConnect/internal/services"
	"github.com/rs/zerolog"
)

// BulkRecomputer is implemented by services.StatsService.
type BulkRecomputer interface {
	RecomputeAll(ctx context.Context) (*services.RecomputeReport, error)
}

type AdminHandler struct {
	stats BulkRecomputer
	log   zerolog.Logger
}

func NewAdminHandler(stats BulkRecomputer, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{stats: stats, log: log.With().Str("component", "admin").Logger()}
}

// POST /api/admin/stats/recompute
func (h *AdminHandler) RecomputeStats(c *gin.Context) {
	report, err := h.stats.RecomputeAll(c.Request.Context())
	if report == nil {
		respondError(c, apperrors.Dependency("recompute statistics", err))
		return
	}

	resp := dtos.RecomputeResponse{
		Mentors:   report.Mentors,
		Succeeded: report.Succeeded,
		Failed:    make([]string, 0, len(report.Failed)),
	}
	for _, id := range report.Failed {
		resp.Failed = append(resp.Failed, id.String())
	}

	status := http.StatusOK
	if err != nil {
		h.log.Warn().Err(err).Int("failed", len(report.Failed)).Msg("bulk recompute finished with failures")
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}
