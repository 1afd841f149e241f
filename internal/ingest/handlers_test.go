package ingest

import (
	"context"
	"testing"
)

func TestBillingEventsHandlerRejectsMalformedJSON(t *testing.T) {
	h := &BillingEventsHandler{}
	err := h.Process(context.Background(), []byte("not json"))
	if err == nil {
		t.Fatal("expected an error")
	}
	var verr *ValidationError
	if !asValidationError(err, &verr) {
		t.Fatalf("expected a *ValidationError, got %T: %v", err, err)
	}
}

func TestBillingEventsHandlerRejectsMalformedUUID(t *testing.T) {
	h := &BillingEventsHandler{}
	payload := []byte(`{"uuid":"not-a-uuid","event_start":"2025-01-01T00:00:00Z","event_end":"2025-01-01T01:00:00Z","sku":"sku-1","workspace":"ws","quantity":1}`)
	err := h.Process(context.Background(), payload)
	if err == nil {
		t.Fatal("expected an error")
	}
	var verr *ValidationError
	if !asValidationError(err, &verr) {
		t.Fatalf("expected a *ValidationError, got %T: %v", err, err)
	}
}

func TestWorkspaceSettingsHandlerRejectsMalformedAccount(t *testing.T) {
	h := &WorkspaceSettingsHandler{}
	payload := []byte(`{"name":"ws-1","account":"not-a-uuid"}`)
	err := h.Process(context.Background(), payload)
	if err == nil {
		t.Fatal("expected an error")
	}
	var verr *ValidationError
	if !asValidationError(err, &verr) {
		t.Fatalf("expected a *ValidationError, got %T: %v", err, err)
	}
}

func asValidationError(err error, target **ValidationError) bool {
	if verr, ok := err.(*ValidationError); ok {
		*target = verr
		return true
	}
	return false
}
