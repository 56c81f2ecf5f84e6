package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/PeerConnect/internal/middlewares"
	"github.com/rs/zerolog"
)

func RegisterPublicEndpoints(router *gin.Engine, h Handlers, jwtSecret string, log zerolog.Logger) {
	router.GET("/health", h.Health.Health)

	public := router.Group("/api")

	public.GET("/ratings/:mentorId", middlewares.RequestTimeout(h.RequestTimeout), h.Ratings.ListMentorRatings)
	public.GET("/ratings/:mentorId/stats", middlewares.RequestTimeout(h.RequestTimeout), h.Ratings.GetMentorStats)

	// The token travels in the query string; the connection outlives any
	// request timeout.
	wsAuth := middlewares.WebSocketAuthMiddleware(jwtSecret, log)
	public.GET("/ws", wsAuth, h.WebSocket.HandleWebSocket)
}
