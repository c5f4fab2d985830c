package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/worker/queue"
)

type fakeConsumer struct {
	msgs chan queue.RabbitMQMessage
	once sync.Once
}

func newFakeConsumer() *fakeConsumer {
	return &fakeConsumer{msgs: make(chan queue.RabbitMQMessage, 10)}
}

func (c *fakeConsumer) Consume(ctx context.Context) (<-chan queue.RabbitMQMessage, error) {
	return c.msgs, nil
}

func (c *fakeConsumer) GetQueueLength() (int, error) { return len(c.msgs), nil }

func (c *fakeConsumer) Close() error {
	c.once.Do(func() { close(c.msgs) })
	return nil
}

type mockHandler struct{ mock.Mock }

func (m *mockHandler) OnNotification(ctx context.Context, key string, state models.TrackingState) error {
	return m.Called(ctx, key, state).Error(0)
}

type outcome struct {
	mu       sync.Mutex
	acked    bool
	nacked   bool
	requeued bool
}

func message(t *testing.T, body []byte, redelivered bool) (queue.RabbitMQMessage, *outcome) {
	t.Helper()
	o := &outcome{}
	return queue.RabbitMQMessage{
		Body:        body,
		Redelivered: redelivered,
		Ack: func(bool) error {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.acked = true
			return nil
		},
		Nack: func(_ bool, requeue bool) error {
			o.mu.Lock()
			defer o.mu.Unlock()
			o.nacked = true
			o.requeued = requeue
			return nil
		},
	}, o
}

type mockScheduler struct{ mock.Mock }

func (m *mockScheduler) Schedule(ctx context.Context, task models.NotificationTask) error {
	return m.Called(ctx, task).Error(0)
}

func trackedTask(key string, retries int) models.NotificationTask {
	return models.NotificationTask{
		Key:       key,
		Countdown: 5,
		Retries:   retries,
		Info: models.TrackingState{
			RequestID:  "req",
			LearnerID:  "learner",
			TotalFiles: 2,
			Pending:    []models.ExternalJob{{ExternalID: "req_1", AnalysisAddress: "a@analysis.urkund.com", Filename: "b.txt"}},
			Corrects:   []models.CorrectOutcome{{ExternalID: "req_0", Filename: "a.txt", Significance: 12.5}},
			Countdown:  10,
		},
	}
}

func taskBody(t *testing.T, task models.NotificationTask) []byte {
	t.Helper()
	body, err := json.Marshal(task)
	require.NoError(t, err)
	return body
}

func runWorker(t *testing.T, handler NotificationHandler, scheduler Scheduler, msgs ...queue.RabbitMQMessage) NotificationWorker {
	t.Helper()
	consumer := newFakeConsumer()
	w := NewNotificationWorker(NewWorkerPool(2, zerolog.Nop()), consumer, handler, scheduler, zerolog.Nop())
	require.NoError(t, w.Start(context.Background()))
	for _, m := range msgs {
		consumer.msgs <- m
	}
	require.NoError(t, w.Stop())
	return w
}

func TestNotificationWorkerAcksProcessed(t *testing.T) {
	h := &mockHandler{}
	h.On("OnNotification", mock.Anything, "urkund_check_data_1", mock.MatchedBy(func(s models.TrackingState) bool {
		return s.RequestID == "req"
	})).Return(nil).Once()
	sched := &mockScheduler{}

	msg, o := message(t, taskBody(t, trackedTask("urkund_check_data_1", 0)), false)
	w := runWorker(t, h, sched, msg)

	h.AssertExpectations(t)
	sched.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything)
	assert.True(t, o.acked)
	assert.False(t, o.nacked)
	assert.Equal(t, 1, w.GetStats().TotalProcessed)
}

func TestNotificationWorkerDropsMalformed(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("{not json")},
		{"empty key", taskBody(t, trackedTask("", 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &mockHandler{}
			sched := &mockScheduler{}

			msg, o := message(t, tt.body, false)
			w := runWorker(t, h, sched, msg)

			h.AssertNotCalled(t, "OnNotification", mock.Anything, mock.Anything, mock.Anything)
			sched.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything)
			assert.True(t, o.acked)
			assert.Equal(t, 1, w.GetStats().DroppedJobs)
		})
	}
}

func TestNotificationWorkerReschedulesTransient(t *testing.T) {
	tests := []struct {
		name          string
		redelivered   bool
		retries       int
		wantRetries   int
		wantCountdown int
	}{
		{"first failure", false, 0, 1, 1},
		{"redelivered failure", true, 0, 1, 1},
		{"repeated failure", true, 3, 4, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := trackedTask("urkund_check_data_1", tt.retries)

			h := &mockHandler{}
			h.On("OnNotification", mock.Anything, original.Key, original.Info).Return(errors.New("results store down")).Once()

			var rescheduled models.NotificationTask
			sched := &mockScheduler{}
			sched.On("Schedule", mock.Anything, mock.Anything).
				Run(func(args mock.Arguments) { rescheduled = args.Get(1).(models.NotificationTask) }).
				Return(nil).Once()

			msg, o := message(t, taskBody(t, original), tt.redelivered)
			w := runWorker(t, h, sched, msg)

			h.AssertExpectations(t)
			sched.AssertExpectations(t)

			assert.Equal(t, original.Key, rescheduled.Key)
			assert.Equal(t, original.Info, rescheduled.Info)
			assert.Equal(t, tt.wantRetries, rescheduled.Retries)
			assert.Equal(t, tt.wantCountdown, rescheduled.Countdown)

			assert.True(t, o.acked)
			assert.False(t, o.nacked)

			stats := w.GetStats()
			assert.Equal(t, 1, stats.FailedJobs)
			assert.Equal(t, 1, stats.RetriedJobs)
			assert.Zero(t, stats.DroppedJobs)
		})
	}
}

func TestNotificationWorkerRequeuesWhenRescheduleFails(t *testing.T) {
	h := &mockHandler{}
	h.On("OnNotification", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("results store down")).Once()
	sched := &mockScheduler{}
	sched.On("Schedule", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	msg, o := message(t, taskBody(t, trackedTask("urkund_check_data_1", 0)), true)
	w := runWorker(t, h, sched, msg)

	sched.AssertExpectations(t)
	assert.True(t, o.nacked)
	assert.True(t, o.requeued)
	assert.False(t, o.acked)
	assert.Zero(t, w.GetStats().DroppedJobs)
}

func TestRetryTask(t *testing.T) {
	tests := []struct {
		retries       int
		wantRetries   int
		wantCountdown int
	}{
		{-3, 1, 1},
		{0, 1, 1},
		{1, 2, 2},
		{5, 6, 32},
		{6, 7, maxRetryCountdown},
		{40, 41, maxRetryCountdown},
	}

	for _, tt := range tests {
		got := retryTask(trackedTask("urkund_check_data_1", tt.retries))
		assert.Equal(t, tt.wantRetries, got.Retries)
		assert.Equal(t, tt.wantCountdown, got.Countdown)
		assert.Equal(t, "urkund_check_data_1", got.Key)
	}
}
