package routes

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/preetsinghmakkar/PeerConnect/internal/handlers"
	"github.com/preetsinghmakkar/PeerConnect/internal/middlewares"
	"github.com/rs/zerolog"
)

type Handlers struct {
	Sessions  *handlers.SessionHandler
	Chat      *handlers.ChatHandler
	Ratings   *handlers.RatingHandler
	Admin     *handlers.AdminHandler
	Health    *handlers.HealthHandler
	WebSocket *handlers.WebSocketHandler

	RequestTimeout time.Duration
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Production     bool
}

func NewRouter(h Handlers, opts Options, log zerolog.Logger) *gin.Engine {
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestLogger(log))
	router.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	RegisterPublicEndpoints(router, h, opts.JWTSecret, log)
	RegisterProtectedEndpoints(router, h, opts.JWTSecret)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
