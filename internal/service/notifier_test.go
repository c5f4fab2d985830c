package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RubachokBoss/plagiarism-checker/urkund-service/internal/models"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte) error {
	return m.Called(ctx, exchange, routingKey, body).Error(0)
}

func (m *mockPublisher) PublishWithDelay(ctx context.Context, exchange, routingKey string, body []byte, delay time.Duration) error {
	return m.Called(ctx, exchange, routingKey, body, delay).Error(0)
}

func TestNotifierSchedule(t *testing.T) {
	pub := &mockPublisher{}
	n := NewNotifier(pub, "urkund_notifications", "urkund.check", zerolog.Nop())

	task := models.NotificationTask{
		Key:       testPrefix + "_1",
		Countdown: 5,
		Info:      trackedState("req_0"),
	}

	var body []byte
	pub.On("PublishWithDelay", mock.Anything, "urkund_notifications", "urkund.check", mock.Anything, 5*time.Minute).
		Run(func(args mock.Arguments) { body = args.Get(3).([]byte) }).
		Return(nil).Once()

	require.NoError(t, n.Schedule(context.Background(), task))
	pub.AssertExpectations(t)

	var decoded models.NotificationTask
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, task.Key, decoded.Key)
	assert.Equal(t, "req_0", decoded.Info.Pending[0].ExternalID)
}

func TestNotifierScheduleError(t *testing.T) {
	pub := &mockPublisher{}
	n := NewNotifier(pub, "x", "k", zerolog.Nop())

	pub.On("PublishWithDelay", mock.Anything, "x", "k", mock.Anything, 2*time.Minute).
		Return(errors.New("channel closed")).Once()

	err := n.Schedule(context.Background(), models.NotificationTask{Key: "k", Countdown: 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}
