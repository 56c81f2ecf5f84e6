package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

const exchangeType = "topic"

// Envelope wraps every domain event published to the exchange.
type Envelope struct {
	ID         uuid.UUID `json:"id"`
	RoutingKey string    `json:"routingKey"`
	OccurredAt time.Time `json:"occurredAt"`
	Payload    any       `json:"payload"`
}

// RabbitMQ publishes domain events to a durable topic exchange.
type RabbitMQ struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	log      zerolog.Logger
}

func NewRabbitMQ(url, exchange string, log zerolog.Logger) (*RabbitMQ, error) {
	log = log.With().Str("component", "events").Logger()

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	log.Info().Str("exchange", exchange).Msg("connected to rabbitmq")

	return &RabbitMQ{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(NewEnvelope(routingKey, payload, time.Now()))
	if err != nil {
		return fmt.Errorf("encode %s event: %w", routingKey, err)
	}

	// amqp channels are not safe for concurrent publishing.
	r.mu.Lock()
	defer r.mu.Unlock()

	err = r.channel.Publish(r.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.channel.Close(); err != nil {
		r.log.Error().Err(err).Msg("close rabbitmq channel")
	}
	if err := r.conn.Close(); err != nil {
		return fmt.Errorf("close rabbitmq connection: %w", err)
	}
	r.log.Info().Msg("rabbitmq connection closed")
	return nil
}

func NewEnvelope(routingKey string, payload any, at time.Time) Envelope {
	return Envelope{
		ID:         uuid.New(),
		RoutingKey: routingKey,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
}

// Nop drops events. It stands in when RABBITMQ_URL is unset.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
