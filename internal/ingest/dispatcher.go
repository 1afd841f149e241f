// Package ingest routes decoded bus messages of three known schemas to the
// billing and workspace components, classifying every outcome as ok,
// permanent, or transient for the bus's redelivery semantics.
package ingest

import (
	"context"
	"errors"

	"github.com/crosslogic/accounting-engine/internal/obs"
	"github.com/crosslogic/accounting-engine/internal/store"
	"go.uber.org/zap"
)

// Outcome is the classification a handler's result is reduced to before
// acknowledging or requesting redelivery from the bus.
type Outcome int

const (
	// OutcomeOK acknowledges the message.
	OutcomeOK Outcome = iota
	// OutcomePermanent drops the message without retry (validation error).
	OutcomePermanent
	// OutcomeTransient requests redelivery (operational store error).
	OutcomeTransient
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomePermanent:
		return "permanent"
	case OutcomeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// ValidationError marks a message as permanently unprocessable: malformed
// UUID, malformed timestamp, or any schema violation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// Classify reduces a handler error to an Outcome. A nil error is OutcomeOK.
// A *ValidationError is always permanent. Anything else is classified by
// store.IsTransient, fail-safe toward redelivery when unclassifiable.
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return OutcomePermanent
	}
	if store.IsTransient(err) {
		return OutcomeTransient
	}
	return OutcomePermanent
}

// Handler is implemented by each of the three topic-bound handlers. Modeled
// as a value rather than a class hierarchy: the dispatcher is a map from
// topic name to Handler.
type Handler interface {
	Process(ctx context.Context, payload []byte) error
}

// Dispatcher owns the three topic-bound handlers and reports the outcome
// of processing each message.
type Dispatcher struct {
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewDispatcher builds a Dispatcher with no handlers registered.
func NewDispatcher(logger *zap.Logger) *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler), logger: logger}
}

// Register binds handler to topic.
func (d *Dispatcher) Register(topic string, handler Handler) {
	d.handlers[topic] = handler
}

// Dispatch processes payload with the handler registered for topic and
// returns the classified outcome. An unrecognised topic is a permanent
// failure: there is no handler that could ever succeed on redelivery.
func (d *Dispatcher) Dispatch(ctx context.Context, topic string, payload []byte) Outcome {
	handler, ok := d.handlers[topic]
	if !ok {
		d.logger.Warn("no handler registered for topic", zap.String("topic", topic))
		obs.MessagesIngested.WithLabelValues(topic, OutcomePermanent.String()).Inc()
		return OutcomePermanent
	}

	err := handler.Process(ctx, payload)
	outcome := Classify(err)
	if err != nil {
		d.logger.Error("message processing failed",
			zap.String("topic", topic), zap.String("outcome", outcome.String()), zap.Error(err))
	}
	obs.MessagesIngested.WithLabelValues(topic, outcome.String()).Inc()
	return outcome
}
