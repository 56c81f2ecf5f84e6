package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/preetsinghmakkar/PeerConnect/internal/models"
	"github.com/redis/go-redis/v9"
)

func TestStatsKey(t *testing.T) {
	id := uuid.MustParse("8c7d1f0e-3b7a-4f1e-9a55-0c4b5d3e2f10")
	if got := statsKey(id); got != "peerconnect:mentor-stats:8c7d1f0e-3b7a-4f1e-9a55-0c4b5d3e2f10" {
		t.Fatalf("unexpected key %s", got)
	}
}

func TestCachedSnapshotRoundTrip(t *testing.T) {
	stats := models.BuildMentorStatistics(uuid.New(), models.RatingDistribution{0, 1, 0, 0, 2, 3}, 4, 120, time.Now())

	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back models.MentorStatistics
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.SameFigures(stats) {
		t.Fatalf("snapshot changed in cache encoding: %+v vs %+v", back, stats)
	}
}

func TestUnreachableRedisIsAnError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	c := NewStatsCache(client, time.Minute)
	stats, err := c.Get(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected an error from an unreachable server")
	}
	if stats != nil {
		t.Fatalf("expected no stats, got %+v", stats)
	}
}

func TestNop(t *testing.T) {
	var c Nop
	stats, err := c.Get(context.Background(), uuid.New())
	if stats != nil || err != nil {
		t.Fatalf("expected miss, got %+v %v", stats, err)
	}
	if err := c.Set(context.Background(), &models.MentorStatistics{}); err != nil {
		t.Fatalf("set: %v", err)
	}
}
