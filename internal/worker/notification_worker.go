package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/worker/queue"
)

// NotificationHandler is re-entered with the tracking state of each wake-up.
type NotificationHandler interface {
	OnNotification(ctx context.Context, key string, state models.TrackingState) error
}

// Scheduler publishes a delayed wake-up.
type Scheduler interface {
	Schedule(ctx context.Context, task models.NotificationTask) error
}

// maxRetryCountdown caps the delay, in minutes, before a failed wake-up runs again.
const maxRetryCountdown = 60

type NotificationWorker interface {
	Start(ctx context.Context) error
	Stop() error
	GetStats() WorkerStats
}

type WorkerStats struct {
	ActiveWorkers  int `json:"active_workers"`
	TotalProcessed int `json:"total_processed"`
	FailedJobs     int `json:"failed_jobs"`
	RetriedJobs    int `json:"retried_jobs"`
	DroppedJobs    int `json:"dropped_jobs"`
	QueueLength    int `json:"queue_length"`
}

type notificationWorker struct {
	workerPool *WorkerPool
	consumer   queue.RabbitMQConsumer
	handler    NotificationHandler
	scheduler  Scheduler
	logger     zerolog.Logger

	stats      WorkerStats
	statsMutex sync.Mutex
	startTime  time.Time
	done       chan struct{}
}

func NewNotificationWorker(
	workerPool *WorkerPool,
	consumer queue.RabbitMQConsumer,
	handler NotificationHandler,
	scheduler Scheduler,
	logger zerolog.Logger,
) NotificationWorker {
	return &notificationWorker{
		workerPool: workerPool,
		consumer:   consumer,
		handler:    handler,
		scheduler:  scheduler,
		logger:     logger,
		startTime:  time.Now(),
		done:       make(chan struct{}),
	}
}

func (w *notificationWorker) Start(ctx context.Context) error {
	w.logger.Info().Msg("Starting notification worker...")

	msgs, err := w.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming messages: %w", err)
	}

	w.workerPool.Start()
	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Notification worker started successfully")
	return nil
}

// Stop cancels the consumer, waits for the dispatch loop to exit and drains the pool.
func (w *notificationWorker) Stop() error {
	w.logger.Info().Msg("Stopping notification worker...")

	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close queue consumer")
	}

	<-w.done
	w.workerPool.Stop()

	stats := w.GetStats()
	w.logger.Info().
		Int("total_processed", stats.TotalProcessed).
		Int("failed_jobs", stats.FailedJobs).
		Dur("uptime", time.Since(w.startTime)).
		Msg("Notification worker stopped")

	return nil
}

func (w *notificationWorker) processMessages(ctx context.Context, msgs <-chan queue.RabbitMQMessage) {
	defer close(w.done)

	for msg := range msgs {
		msg := msg
		if !w.workerPool.Submit(func() { w.handle(ctx, msg) }) {
			if err := msg.Nack(false, true); err != nil {
				w.logger.Error().Err(err).Msg("Failed to nack message")
			}
		}
	}

	w.logger.Info().Msg("Message channel closed, dispatch stopped")
}

// handle acks a processed wake-up. A malformed body is dropped. Any other
// failure publishes the same task again with a growing delay; the message is
// requeued only when that publish fails too.
func (w *notificationWorker) handle(ctx context.Context, msg queue.RabbitMQMessage) {
	task, err := decodeTask(msg.Body)
	if err == nil {
		w.logger.Debug().
			Str("key", task.Key).
			Str("request_id", task.Info.RequestID).
			Int("pending", len(task.Info.Pending)).
			Int("retries", task.Retries).
			Msg("Processing notification")

		err = w.handler.OnNotification(ctx, task.Key, task.Info)
	}
	if err == nil {
		w.ack(msg)
		w.statsMutex.Lock()
		w.stats.TotalProcessed++
		w.statsMutex.Unlock()
		return
	}

	w.statsMutex.Lock()
	w.stats.FailedJobs++
	w.statsMutex.Unlock()

	if isPermanentError(err) {
		w.logger.Error().
			Err(err).
			Str("body", string(msg.Body)).
			Msg("Dropping malformed notification")

		w.statsMutex.Lock()
		w.stats.DroppedJobs++
		w.statsMutex.Unlock()

		w.ack(msg)
		return
	}

	retry := retryTask(task)
	if schedErr := w.scheduler.Schedule(ctx, retry); schedErr != nil {
		w.logger.Error().
			Err(schedErr).
			Str("key", task.Key).
			Str("request_id", task.Info.RequestID).
			Msg("Failed to reschedule notification, requeueing")
		if nackErr := msg.Nack(false, true); nackErr != nil {
			w.logger.Error().Err(nackErr).Msg("Failed to nack message")
		}
		return
	}

	w.logger.Warn().
		Err(err).
		Str("key", task.Key).
		Str("request_id", task.Info.RequestID).
		Int("retries", retry.Retries).
		Int("countdown", retry.Countdown).
		Msg("Failed to process notification, rescheduled")

	w.statsMutex.Lock()
	w.stats.RetriedJobs++
	w.statsMutex.Unlock()

	w.ack(msg)
}

func (w *notificationWorker) ack(msg queue.RabbitMQMessage) {
	if err := msg.Ack(false); err != nil {
		w.logger.Error().Err(err).Msg("Failed to ack message")
	}
}

func decodeTask(body []byte) (models.NotificationTask, error) {
	var task models.NotificationTask
	if err := json.Unmarshal(body, &task); err != nil {
		return task, permanent(fmt.Errorf("failed to unmarshal notification: %w", err))
	}
	if strings.TrimSpace(task.Key) == "" {
		return task, permanent(errors.New("empty notification key"))
	}
	if strings.TrimSpace(task.Info.RequestID) == "" {
		return task, permanent(errors.New("empty request_id"))
	}
	return task, nil
}

// retryTask returns task with the retry counter bumped and a countdown that
// doubles per attempt up to maxRetryCountdown minutes. The tracking state is
// carried unchanged.
func retryTask(task models.NotificationTask) models.NotificationTask {
	task.Retries = max(task.Retries, 0) + 1
	task.Countdown = maxRetryCountdown
	if task.Retries <= 6 {
		task.Countdown = min(1<<(task.Retries-1), maxRetryCountdown)
	}
	return task
}

func (w *notificationWorker) GetStats() WorkerStats {
	w.statsMutex.Lock()
	defer w.statsMutex.Unlock()

	if n, err := w.consumer.GetQueueLength(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to get queue length")
	} else {
		w.stats.QueueLength = n
	}
	w.stats.ActiveWorkers = w.workerPool.GetActiveWorkers()

	return w.stats
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
