package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-sync/internal/events"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer publishes storefront events asynchronously. The writer has no
// fixed topic; each message carries its own (cart or orders).
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	log     *zap.Logger

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, buf int, log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        true,
			Completion: func(msgs []kafka.Message, err error) {
				if err != nil {
					log.Warn("kafka write failed", zap.Int("messages", len(msgs)), zap.Error(err))
				}
			},
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		log:     log,
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.Close()
				for m := range p.inbox {
					_ = p.w.WriteMessages(context.Background(), m)
				}
				_ = p.w.Close()
				return
			case m, ok := <-p.inbox:
				if !ok {
					_ = p.w.Close()
					return
				}
				if err := p.w.WriteMessages(context.Background(), m); err != nil {
					p.log.Warn("kafka enqueue failed", zap.String("topic", m.Topic), zap.Error(err))
				}
			}
		}
	}()
}

// Send queues one message. A full inbox or a closed producer drops it.
func (p *Producer) Send(topic string, key, value []byte, headers ...kafka.Header) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return false
	}
	select {
	case p.inbox <- kafka.Message{Topic: topic, Key: key, Value: value, Time: time.Now(), Headers: headers}:
		return true
	default:
		p.log.Warn("kafka inbox full, dropping message", zap.String("topic", topic))
		return false
	}
}

// Publish implements events.Publisher. Partition key = correlation id so all
// events of one cart or order keep their order.
func (p *Producer) Publish(_ context.Context, e events.Envelope) {
	b, err := json.Marshal(e)
	if err != nil {
		p.log.Warn("encode event", zap.String("event_type", e.EventType), zap.Error(err))
		return
	}
	p.Send(e.Topic(), []byte(e.CorrelationID), b,
		kafka.Header{Key: "x-event-type", Value: []byte(e.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// Close stops accepting messages; the loop flushes what is queued and exits.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// WaitClosed blocks until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closeCh }
