package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Scope string

const (
	ScopeRoom   Scope = "room"
	ScopeGlobal Scope = "global"
	ScopeUser   Scope = "user"
)

// Frame is an encoded event addressed to a room, a user or everyone.
type Frame struct {
	Scope         Scope           `json:"scope"`
	SessionID     uuid.UUID       `json:"sessionId"`
	UserID        uuid.UUID       `json:"userId"`
	ExcludeClient uuid.UUID       `json:"excludeClient"`
	Data          json.RawMessage `json:"data"`
}

// Relay fans frames out to every process serving websocket clients.
type Relay interface {
	Publish(ctx context.Context, frame Frame) error
}

// RedisRelay carries frames over a Redis pub/sub channel.
type RedisRelay struct {
	client  *redis.Client
	channel string
	log     zerolog.Logger

	subscribed atomic.Bool
}

func NewRedisRelay(client *redis.Client, channel string, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:  client,
		channel: channel,
		log:     log.With().Str("component", "relay").Str("channel", channel).Logger(),
	}
}

func (r *RedisRelay) Publish(ctx context.Context, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	// Frames published before this process subscribes never come back.
	if !r.subscribed.Load() {
		return ErrNotSubscribed
	}
	return nil
}

// Subscribed reports whether Run currently holds a live subscription.
func (r *RedisRelay) Subscribed() bool {
	return r.subscribed.Load()
}

// Run subscribes to the channel and hands every frame to deliver until ctx
// is cancelled.
func (r *RedisRelay) Run(ctx context.Context, deliver func(Frame)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	r.log.Info().Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return ErrRelayClosed
			}
			var frame Frame
			if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
				r.log.Warn().Err(err).Msg("dropping malformed frame")
				continue
			}
			deliver(frame)
		}
	}
}

// IsClosed reports whether err means the relay stopped on its own.
func IsClosed(err error) bool {
	return errors.Is(err, ErrRelayClosed)
}
