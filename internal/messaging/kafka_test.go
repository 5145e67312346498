package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careerlink/jobrec/internal/config"
)

func testBus() *MessageBus {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return &MessageBus{logger: logger}
}

func TestMessageBus_GetMetrics(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.ConsumerGroup = "jobrec"

	bus, err := NewMessageBus(cfg, testBus().logger)
	require.NoError(t, err)
	defer bus.Close()

	stats := bus.GetMetrics()
	assert.Contains(t, stats, "consumer_lag")
	assert.Contains(t, stats, "consumer_offset")
	assert.Contains(t, stats, "messages_read")
}

func TestProcessWithRetry(t *testing.T) {
	t.Run("first attempt succeeds without delay", func(t *testing.T) {
		bus := testBus()
		calls := 0
		start := time.Now()
		err := bus.processWithRetry(context.Background(), []byte(`{}`), func([]byte) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("transient failure recovers on retry", func(t *testing.T) {
		bus := testBus()
		calls := 0
		err := bus.processWithRetry(context.Background(), []byte(`{}`), func([]byte) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled context stops the backoff wait", func(t *testing.T) {
		bus := testBus()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := bus.processWithRetry(ctx, []byte(`{}`), func([]byte) error {
			return errors.New("always failing")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
