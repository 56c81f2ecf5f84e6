package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/middlewares"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

type errorResponse struct {
	Error   apperrors.Kind `json:"error"`
	Message string         `json:"message"`
}

// respondError writes err as {"error": kind, "message": ...}. Errors that are
// not *apperrors.Error are reported as internal without leaking details.
func respondError(c *gin.Context, err error) {
	kind := apperrors.KindOf(err)
	if kind == apperrors.KindInternal || kind == apperrors.KindDependencyFailure {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apperrors.HTTPStatus(kind), errorResponse{
		Error:   kind,
		Message: apperrors.MessageOf(err),
	})
}

func bindError(c *gin.Context, err error) {
	respondError(c, apperrors.Validation(err.Error()))
}

func identity(c *gin.Context) (models.Identity, bool) {
	id, ok := middlewares.GetIdentity(c)
	if !ok {
		respondError(c, apperrors.New(apperrors.KindUnauthorized, "authentication required"))
	}
	return id, ok
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondError(c, apperrors.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON binds a JSON body that may be absent altogether.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		bindError(c, err)
		return false
	}
	return true
}
