// Command recompute-stats rebuilds every mentor's statistics from sessions,
// session logs and ratings, then exits. Safe to run at any time.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/preetsinghmakkar/PeerConnect/internal/cache"
	"github.com/preetsinghmakkar/PeerConnect/internal/config"
	"github.com/preetsinghmakkar/PeerConnect/internal/database"
	"github.com/preetsinghmakkar/PeerConnect/internal/events"
	"github.com/preetsinghmakkar/PeerConnect/internal/logger"
	"github.com/preetsinghmakkar/PeerConnect/internal/repositories"
	"github.com/preetsinghmakkar/PeerConnect/internal/services"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(cfg.LogLevel, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL, database.Options{MaxOpenConns: cfg.StatsWorkers + 1})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer db.Close()

	var statsCache services.StatsCache = cache.Nop{}
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("connect redis")
		}
		defer client.Close()
		statsCache = cache.NewStatsCache(client, cfg.StatsCacheTTL)
	}

	var publisher services.EventPublisher = events.Nop{}
	if cfg.RabbitMQURL != "" {
		mq, err := events.NewRabbitMQ(cfg.RabbitMQURL, cfg.RabbitMQExchange, log)
		if err != nil {
			log.Fatal().Err(err).Msg("connect rabbitmq")
		}
		defer mq.Close()
		publisher = mq
	}

	stats := services.NewStatsService(
		repositories.NewSessionRepository(db),
		repositories.NewSessionLogRepository(db),
		repositories.NewRatingRepository(db),
		repositories.NewMentorStatsRepository(db),
		repositories.NewUserRepository(db),
		statsCache,
		publisher,
		cfg.StatsWorkers,
		log,
	)

	report, err := stats.RecomputeAll(ctx)
	if report == nil {
		log.Fatal().Err(err).Msg("list mentors")
	}

	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err).Interface("failed", report.Failed)
	}
	ev.Int("mentors", report.Mentors).Int("succeeded", report.Succeeded).Msg("recompute finished")

	if err != nil {
		os.Exit(1)
	}
}
