package queue

import (
	"context"
	"fmt"
	"math"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

type RabbitMQPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
	PublishWithDelay(ctx context.Context, exchange, routingKey string, body []byte, delay time.Duration) error
}

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type rabbitMQPublisher struct {
	channel Channel
	logger  zerolog.Logger
}

func NewRabbitMQPublisher(channel Channel, logger zerolog.Logger) RabbitMQPublisher {
	return &rabbitMQPublisher{
		channel: channel,
		logger:  logger,
	}
}

func (p *rabbitMQPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return p.publish(ctx, exchange, routingKey, body, nil)
}

// PublishWithDelay sets the x-delay header read by the delayed-message
// exchange. Delays beyond the int32 millisecond range are clamped.
func (p *rabbitMQPublisher) PublishWithDelay(ctx context.Context, exchange, routingKey string, body []byte, delay time.Duration) error {
	var headers amqp.Table
	if delay > 0 {
		ms := delay.Milliseconds()
		if ms > math.MaxInt32 {
			ms = math.MaxInt32
		}
		headers = amqp.Table{"x-delay": int32(ms)}
	}
	return p.publish(ctx, exchange, routingKey, body, headers)
}

func (p *rabbitMQPublisher) publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := p.channel.PublishWithContext(
		publishCtx,
		exchange,   // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			Headers:      headers,
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	p.logger.Debug().
		Str("exchange", exchange).
		Str("routing_key", routingKey).
		Int("size", len(body)).
		Msg("Message published")

	return nil
}
