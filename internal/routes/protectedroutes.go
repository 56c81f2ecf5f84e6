package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/PeerConnect/internal/middlewares"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
)

func RegisterProtectedEndpoints(router *gin.Engine, h Handlers, jwtSecret string) {
	protected := router.Group("/api")
	protected.Use(middlewares.AuthMiddleware(jwtSecret), middlewares.RequestTimeout(h.RequestTimeout))

	protected.POST("/sessions/request", h.Sessions.RequestSession)
	protected.GET("/sessions/active", h.Sessions.ListActive)
	protected.GET("/sessions/pending", h.Sessions.ListPending)
	protected.GET("/sessions/logs", h.Sessions.ListLogs)
	protected.GET("/sessions/:id", h.Sessions.GetSession)
	protected.POST("/sessions/:id/accept", h.Sessions.AcceptSession)
	protected.POST("/sessions/:id/end", h.Sessions.EndSession)
	protected.POST("/sessions/:id/cancel", h.Sessions.CancelSession)

	protected.POST("/chat/messages", h.Chat.SendMessage)
	protected.POST("/chat/messages/upload", h.Chat.UploadMessage)
	protected.GET("/chat/messages/:sessionId", h.Chat.ListMessages)

	protected.POST("/ratings", h.Ratings.SubmitRating)

	admin := protected.Group("/admin")
	admin.Use(middlewares.RequireRole(models.RoleAdmin))
	admin.POST("/stats/recompute", h.Admin.RecomputeStats)
}
