package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Subscriber is the message-bus client's interface as seen by the ingest
// consumer process. The bus client itself is plumbing external to this
// engine; only this interface is specified here. The handle callback
// returns an Outcome: OutcomeOK and OutcomePermanent acknowledge the
// message, OutcomeTransient requests redelivery.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handle func(ctx context.Context, payload []byte) Outcome) error
}

// MessageHandler is a function bound to a topic inside an in-memory Bus.
type MessageHandler func(ctx context.Context, payload []byte) Outcome

// Bus is an in-memory, topic-keyed pub-sub implementation of Subscriber,
// used for local development and tests in place of a real bus client.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]MessageHandler
	logger   *zap.Logger
}

// NewBus creates an empty in-memory bus.
func NewBus(logger *zap.Logger) *Bus {
	return &Bus{handlers: make(map[string][]MessageHandler), logger: logger}
}

// Subscribe registers handle to run whenever a message is published to
// topic.
func (b *Bus) Subscribe(ctx context.Context, topic string, handle func(ctx context.Context, payload []byte) Outcome) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handle)
	b.logger.Info("subscribed to topic", zap.String("topic", topic))
	return nil
}

// Publish delivers payload to every handler subscribed to topic, returning
// the worst outcome observed (transient dominates permanent dominates ok).
// Used to feed the dispatcher in tests and single-process deployments.
func (b *Bus) Publish(ctx context.Context, topic string, payload []byte) Outcome {
	b.mu.RLock()
	handlers := append([]MessageHandler(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	worst := OutcomeOK
	for _, h := range handlers {
		if outcome := h(ctx, payload); outcome > worst {
			worst = outcome
		}
	}
	return worst
}
