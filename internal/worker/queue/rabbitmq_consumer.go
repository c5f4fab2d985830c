package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type RabbitMQMessage struct {
	Body        []byte
	Timestamp   time.Time
	Redelivered bool
	Ack         func(multiple bool) error
	Nack        func(multiple bool, requeue bool) error
}

type RabbitMQConsumer interface {
	Consume(ctx context.Context) (<-chan RabbitMQMessage, error)
	GetQueueLength() (int, error)
	Close() error
}

type rabbitMQConsumer struct {
	channel     *amqp.Channel
	queue       string
	consumerTag string
	logger      zerolog.Logger
}

func NewRabbitMQConsumer(channel *amqp.Channel, queue, consumerTag string, logger zerolog.Logger) RabbitMQConsumer {
	return &rabbitMQConsumer{
		channel:     channel,
		queue:       queue,
		consumerTag: consumerTag,
		logger:      logger,
	}
}

// Consume relays deliveries until ctx is cancelled or the broker closes the
// channel. A delivery still in flight at cancellation is requeued.
func (c *rabbitMQConsumer) Consume(ctx context.Context) (<-chan RabbitMQMessage, error) {
	deliveries, err := c.channel.Consume(
		c.queue,       // queue
		c.consumerTag, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume queue %s: %w", c.queue, err)
	}

	output := make(chan RabbitMQMessage)
	go forward(ctx, deliveries, output, c.logger)

	c.logger.Info().
		Str("queue", c.queue).
		Str("consumer_tag", c.consumerTag).
		Msg("RabbitMQ consumer started")

	return output, nil
}

func forward(ctx context.Context, deliveries <-chan amqp.Delivery, output chan<- RabbitMQMessage, logger zerolog.Logger) {
	defer close(output)

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Stopping RabbitMQ consumer")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn().Msg("RabbitMQ delivery channel closed")
				return
			}

			msg := RabbitMQMessage{
				Body:        d.Body,
				Timestamp:   d.Timestamp,
				Redelivered: d.Redelivered,
				Ack:         d.Ack,
				Nack:        d.Nack,
			}

			select {
			case output <- msg:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					logger.Error().Err(err).Msg("Failed to requeue delivery")
				}
				return
			}
		}
	}
}

func (c *rabbitMQConsumer) GetQueueLength() (int, error) {
	q, err := c.channel.QueueDeclarePassive(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return 0, err
	}

	return q.Messages, nil
}

func (c *rabbitMQConsumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Cancel(c.consumerTag, false); err != nil {
			c.logger.Error().Err(err).Msg("Failed to cancel RabbitMQ consumer")
		}
	}

	c.logger.Info().Msg("RabbitMQ consumer closed")
	return nil
}
