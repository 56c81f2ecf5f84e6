package middlewares

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/preetsinghmakkar/PeerConnect/internal/utils"
)

const identityKey = "identity"

// AuthMiddleware authenticates REST calls from the Authorization bearer token.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, apperrors.KindUnauthorized, "authentication required")
			return
		}

		claims, err := utils.ParseAccessToken(strings.TrimSpace(token), jwtSecret)
		if err != nil {
			abort(c, apperrors.KindUnauthorized, "invalid or expired token")
			return
		}

		c.Set(identityKey, claims.Identity())
		c.Next()
	}
}

// RequireRole lets through only callers holding one of roles. It must run
// after AuthMiddleware.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abort(c, apperrors.KindUnauthorized, "authentication required")
			return
		}
		if !slices.Contains(roles, id.Role) {
			abort(c, apperrors.KindForbidden, "insufficient role")
			return
		}
		c.Next()
	}
}

// GetIdentity returns the caller stored by AuthMiddleware or
// WebSocketAuthMiddleware.
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

// SetIdentity is used by tests and by the websocket middleware.
func SetIdentity(c *gin.Context, id models.Identity) {
	c.Set(identityKey, id)
}

func abort(c *gin.Context, kind apperrors.Kind, message string) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(kind), gin.H{
		"error":   kind,
		"message": message,
	})
}
