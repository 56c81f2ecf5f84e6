package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/redis/go-redis/v9"
)

const statsKeyPrefix = "peerconnect:mentor-stats:"

// StatsCache keeps mentor statistics snapshots in Redis as JSON.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(mentorID uuid.UUID) string {
	return statsKeyPrefix + mentorID.String()
}

// Get returns nil, nil when the mentor is not cached.
func (c *StatsCache) Get(ctx context.Context, mentorID uuid.UUID) (*models.MentorStatistics, error) {
	data, err := c.client.Get(ctx, statsKey(mentorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cached stats: %w", err)
	}

	var stats models.MentorStatistics
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("decode cached stats: %w", err)
	}
	return &stats, nil
}

func (c *StatsCache) Set(ctx context.Context, stats *models.MentorStatistics) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey(stats.MentorID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache stats: %w", err)
	}
	return nil
}

// Nop is used when Redis is not configured. Every read is a miss.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*models.MentorStatistics, error) { return nil, nil }
func (Nop) Set(context.Context, *models.MentorStatistics) error              { return nil }
