package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/preetsinghmakkar/PeerConnect/internal/cache"
	"github.com/preetsinghmakkar/PeerConnect/internal/config"
	"github.com/preetsinghmakkar/PeerConnect/internal/database"
	"github.com/preetsinghmakkar/PeerConnect/internal/events"
	"github.com/preetsinghmakkar/PeerConnect/internal/handlers"
	"github.com/preetsinghmakkar/PeerConnect/internal/logger"
	"github.com/preetsinghmakkar/PeerConnect/internal/repositories"
	"github.com/preetsinghmakkar/PeerConnect/internal/routes"
	"github.com/preetsinghmakkar/PeerConnect/internal/services"
	"github.com/preetsinghmakkar/PeerConnect/internal/storage"
	ws "github.com/preetsinghmakkar/PeerConnect/internal/websocket"
	"github.com/rs/zerolog"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info().Msg("database ready")

	checks := map[string]handlers.HealthCheck{"postgres": db.PingContext}
	hub := ws.NewHub(log)

	var statsCache services.StatsCache = cache.Nop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()

		statsCache = cache.NewStatsCache(client, cfg.StatsCacheTTL)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		relay := ws.NewRedisRelay(client, cfg.RedisHubChannel, log)
		hub.SetRelay(relay)
		go runRelay(ctx, relay, hub, log)
	} else {
		log.Warn().Msg("REDIS_URL not set, statistics cache and cross-instance fan-out disabled")
	}

	var publisher services.EventPublisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		mq, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			return err
		}
		defer mq.Close()
		publisher = mq
	}

	var files services.FileStorage = storage.Disabled{}
	if cfg.StorageEnabled() {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Endpoint:        cfg.S3.Endpoint,
			PublicURL:       cfg.S3.PublicURL,
		})
		if err != nil {
			return err
		}
		files = s3
	} else {
		log.Warn().Msg("S3 not configured, attachment uploads disabled")
	}

	h, dispatcher := wire(db, cfg, hub, statsCache, publisher, files, log)
	h.Health = handlers.NewHealthHandler(checks)

	dispatcher.Start()

	router := routes.NewRouter(h, routes.Options{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		Production:     cfg.IsProduction(),
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("background tasks did not drain")
	}
	return nil
}

func wire(
	db *sql.DB,
	cfg *config.Config,
	hub *ws.Hub,
	statsCache services.StatsCache,
	publisher services.EventPublisher,
	files services.FileStorage,
	log zerolog.Logger,
) (routes.Handlers, *services.TaskDispatcher) {
	sessionRepo := repositories.NewSessionRepository(db)
	logRepo := repositories.NewSessionLogRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	ratingRepo := repositories.NewRatingRepository(db)
	statsRepo := repositories.NewMentorStatsRepository(db)
	userRepo := repositories.NewUserRepository(db)

	dispatcher := services.NewTaskDispatcher(cfg.StatsWorkers, cfg.StatsQueueSize, cfg.StatsTimeout, log)

	stats := services.NewStatsService(sessionRepo, logRepo, ratingRepo, statsRepo, userRepo, statsCache, publisher, cfg.StatsWorkers, log)
	sessions := services.NewSessionService(sessionRepo, userRepo, stats, dispatcher, hub, publisher, log)
	chat := services.NewChatService(sessionRepo, messageRepo, files, hub, log)
	ratings := services.NewRatingService(sessionRepo, ratingRepo, stats, dispatcher, hub, publisher, log)

	return routes.Handlers{
		Sessions:       handlers.NewSessionHandler(sessions),
		Chat:           handlers.NewChatHandler(chat, cfg.MaxUploadBytes),
		Ratings:        handlers.NewRatingHandler(ratings, stats),
		Admin:          handlers.NewAdminHandler(stats, log),
		WebSocket:      handlers.NewWebSocketHandler(hub, sessions, cfg.AllowedOrigins, log),
		RequestTimeout: cfg.RequestTimeout,
	}, dispatcher
}

// runRelay keeps the hub subscribed to the relay channel, resubscribing
// after a dropped connection until ctx ends.
func runRelay(ctx context.Context, relay *ws.RedisRelay, hub *ws.Hub, log zerolog.Logger) {
	for {
		err := relay.Run(ctx, hub.Deliver)
		if ctx.Err() != nil {
			return
		}
		ev := log.Warn().Err(err)
		if ws.IsClosed(err) {
			ev = log.Info()
		}
		ev.Msg("relay subscription lost, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}
