package ingest

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type stubHandler struct {
	err error
}

func (h *stubHandler) Process(ctx context.Context, payload []byte) error {
	return h.err
}

func TestClassifyNilErrorIsOK(t *testing.T) {
	if got := Classify(nil); got != OutcomeOK {
		t.Fatalf("got %v want OutcomeOK", got)
	}
}

func TestClassifyValidationErrorIsPermanent(t *testing.T) {
	err := &ValidationError{Err: errors.New("malformed uuid")}
	if got := Classify(err); got != OutcomePermanent {
		t.Fatalf("got %v want OutcomePermanent", got)
	}
}

func TestClassifyUnknownErrorIsTransient(t *testing.T) {
	// store.IsTransient defaults to true for anything it cannot classify.
	err := errors.New("connection reset")
	if got := Classify(err); got != OutcomeTransient {
		t.Fatalf("got %v want OutcomeTransient", got)
	}
}

func TestDispatchUnknownTopicIsPermanent(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	got := d.Dispatch(context.Background(), "no-such-topic", []byte("{}"))
	if got != OutcomePermanent {
		t.Fatalf("got %v want OutcomePermanent", got)
	}
}

func TestDispatchRoutesToRegisteredHandler(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Register("topic-a", &stubHandler{})
	got := d.Dispatch(context.Background(), "topic-a", []byte("{}"))
	if got != OutcomeOK {
		t.Fatalf("got %v want OutcomeOK", got)
	}
}

func TestDispatchPropagatesValidationError(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Register("topic-a", &stubHandler{err: &ValidationError{Err: errors.New("bad")}})
	got := d.Dispatch(context.Background(), "topic-a", []byte("{}"))
	if got != OutcomePermanent {
		t.Fatalf("got %v want OutcomePermanent", got)
	}
}
