package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestHandleRetriesUntilSuccess(t *testing.T) {
	c := &Consumer{retryWait: time.Millisecond, log: zaptest.NewLogger(t)}
	calls := 0
	h := func(ctx context.Context, m kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("redis down")
		}
		return nil
	}

	require.NoError(t, c.handle(context.Background(), h, kafka.Message{Offset: 7}))
	assert.Equal(t, 3, calls)
}

func TestHandleStopsOnShutdown(t *testing.T) {
	c := &Consumer{retryWait: time.Millisecond, log: zaptest.NewLogger(t)}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	h := func(ctx context.Context, m kafka.Message) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("redis down")
	}

	assert.Error(t, c.handle(ctx, h, kafka.Message{}))
	assert.Equal(t, 2, calls)
}

func TestLaneIsStablePerPartition(t *testing.T) {
	assert.Equal(t, 1, lane(kafka.Message{Partition: 5}, 4))
	assert.Equal(t, lane(kafka.Message{Partition: 5, Offset: 1}, 4), lane(kafka.Message{Partition: 5, Offset: 9}, 4))
	assert.Equal(t, 0, lane(kafka.Message{Partition: 3}, 1))
	assert.Equal(t, 0, lane(kafka.Message{Partition: -1}, 4))
}
