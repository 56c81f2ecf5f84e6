package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/PeerConnect/internal/apperrors"
	"github.com/preetsinghmakkar/PeerConnect/internal/utils"
	"github.com/rs/zerolog"
)

// WebSocketAuthMiddleware authenticates the upgrade request. Browsers cannot
// set headers on a websocket handshake, so the token travels in the query.
// Must be used BEFORE the upgrade.
func WebSocketAuthMiddleware(jwtSecret string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			log.Debug().Str("remote_addr", c.ClientIP()).Msg("websocket token missing")
			abort(c, apperrors.KindUnauthorized, "authentication required")
			return
		}

		claims, err := utils.ParseAccessToken(token, jwtSecret)
		if err != nil {
			log.Debug().Err(err).Str("remote_addr", c.ClientIP()).Msg("websocket token rejected")
			abort(c, apperrors.KindUnauthorized, "invalid or expired token")
			return
		}

		SetIdentity(c, claims.Identity())
		c.Next()
	}
}
