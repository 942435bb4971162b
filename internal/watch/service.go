// Package watch follows storefront events off Kafka: it drops redeliveries
// and keeps the last status seen for every order in Redis.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-sync/internal/events"
	kafkax "github.com/ariefcatur/go-storefront-sync/internal/kafka"
	"github.com/ariefcatur/go-storefront-sync/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type OrderStatus struct {
	StatusID   int       `json:"status_id"`
	StatusName string    `json:"status_name"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Service struct {
	Redis       *redis.Client
	ServiceName string
	Log         *zap.Logger
}

// HandleEvent is installed as the consumer handler. A nil return lets the
// consumer commit the offset.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope; a poison message is logged and skipped
	env, err := kafkax.DecodeEnvelope(m.Value)
	if err != nil {
		s.Log.Warn("skipping undecodable message", zap.String("topic", m.Topic), zap.Int64("offset", m.Offset), zap.Error(err))
		return nil
	}

	// 2) dedup via Redis on event_id; the mark is written only once the
	// event is handled, so a failed attempt is applied on redelivery
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	seen, err := s.Redis.Exists(ctx, dkey).Result()
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if seen > 0 {
		s.Log.Debug("duplicate event", zap.String("event_id", env.EventID))
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		return err
	}

	// 3) mark processed
	if err := s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err(); err != nil {
		return fmt.Errorf("mark %s: %w", env.EventID, err)
	}
	return nil
}

func (s *Service) apply(ctx context.Context, env events.Envelope) error {
	s.Log.Info("event",
		zap.String("type", env.EventType),
		zap.String("producer", env.Producer),
		zap.String("correlation_id", env.CorrelationID),
		zap.Time("occurred_at", env.OccurredAt),
	)

	if env.EventType != events.EventOrderStatusChanged {
		return nil
	}
	p, err := kafkax.UnwrapPayload[events.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		s.Log.Warn("bad order status payload", zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}
	return s.recordStatus(ctx, p, env.OccurredAt)
}

// recordStatus keeps the newest status per order; an older event arriving
// late does not overwrite it.
func (s *Service) recordStatus(ctx context.Context, p events.OrderStatusChangedPayload, at time.Time) error {
	prev, ok, err := s.LastStatus(ctx, p.OrderID)
	if err != nil {
		return err
	}
	if ok && prev.UpdatedAt.After(at) {
		return nil
	}
	b, err := json.Marshal(OrderStatus{StatusID: p.StatusID, StatusName: p.StatusName, UpdatedAt: at})
	if err != nil {
		return err
	}
	return s.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrderStatus, p.OrderID), b, redisx.TTLOrderStatus).Err()
}

func (s *Service) LastStatus(ctx context.Context, orderID int) (OrderStatus, bool, error) {
	raw, err := s.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return OrderStatus{}, false, nil
	}
	if err != nil {
		return OrderStatus{}, false, err
	}
	var st OrderStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return OrderStatus{}, false, nil
	}
	return st, true, nil
}
