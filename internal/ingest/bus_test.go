package ingest

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestBusPublishDeliversToSubscriber(t *testing.T) {
	b := NewBus(zap.NewNop())
	var received []byte
	b.Subscribe(context.Background(), "topic-a", func(ctx context.Context, payload []byte) Outcome {
		received = payload
		return OutcomeOK
	})

	got := b.Publish(context.Background(), "topic-a", []byte("hello"))
	if got != OutcomeOK {
		t.Fatalf("got %v want OutcomeOK", got)
	}
	if string(received) != "hello" {
		t.Fatalf("got %q want %q", received, "hello")
	}
}

func TestBusPublishWithNoSubscribersIsOK(t *testing.T) {
	b := NewBus(zap.NewNop())
	got := b.Publish(context.Background(), "unsubscribed-topic", []byte("x"))
	if got != OutcomeOK {
		t.Fatalf("got %v want OutcomeOK", got)
	}
}

func TestBusPublishReturnsWorstOutcome(t *testing.T) {
	b := NewBus(zap.NewNop())
	b.Subscribe(context.Background(), "topic-a", func(ctx context.Context, payload []byte) Outcome {
		return OutcomeOK
	})
	b.Subscribe(context.Background(), "topic-a", func(ctx context.Context, payload []byte) Outcome {
		return OutcomeTransient
	})

	got := b.Publish(context.Background(), "topic-a", []byte("x"))
	if got != OutcomeTransient {
		t.Fatalf("got %v want OutcomeTransient", got)
	}
}
