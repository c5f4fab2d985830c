package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/worker/queue"
)

// Notifier schedules a wake-up carrying the tracking state.
type Notifier interface {
	Schedule(ctx context.Context, task models.NotificationTask) error
}

type rabbitNotifier struct {
	publisher  queue.RabbitMQPublisher
	exchange   string
	routingKey string
	logger     zerolog.Logger
}

// NewNotifier publishes notification tasks to a delayed-message exchange.
// The broker holds each message for Countdown minutes before routing it.
func NewNotifier(publisher queue.RabbitMQPublisher, exchange, routingKey string, logger zerolog.Logger) Notifier {
	return &rabbitNotifier{
		publisher:  publisher,
		exchange:   exchange,
		routingKey: routingKey,
		logger:     logger,
	}
}

func (n *rabbitNotifier) Schedule(ctx context.Context, task models.NotificationTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal notification task: %w", err)
	}

	delay := time.Duration(task.Countdown) * time.Minute
	if err := n.publisher.PublishWithDelay(ctx, n.exchange, n.routingKey, body, delay); err != nil {
		return fmt.Errorf("failed to publish notification task: %w", err)
	}

	n.logger.Debug().
		Str("key", task.Key).
		Str("request_id", task.Info.RequestID).
		Dur("delay", delay).
		Msg("Notification scheduled")

	return nil
}
