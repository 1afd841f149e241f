package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crosslogic/accounting-engine/internal/billing"
	"github.com/crosslogic/accounting-engine/internal/workspace"
	"github.com/crosslogic/accounting-engine/pkg/models"
	"github.com/google/uuid"
)

// Topic names as named in the message bus's three subscriptions.
const (
	TopicBillingEvents     = "billing-events"
	TopicWorkspaceSettings = "workspace-settings"
	TopicRateSamples       = "billing-events-consumption-rate-samples"
)

// BillingEventsHandler decodes and records BillingEvent messages.
type BillingEventsHandler struct {
	Recorder *billing.EventRecorder
}

func (h *BillingEventsHandler) Process(ctx context.Context, payload []byte) error {
	var msg models.BillingEventMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return &ValidationError{Err: fmt.Errorf("decode billing event: %w", err)}
	}

	id, err := uuid.Parse(msg.UUID)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("billing event uuid: %w", err)}
	}
	start, err := parseTimestamp(msg.EventStart)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("billing event start: %w", err)}
	}
	end, err := parseTimestamp(msg.EventEnd)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("billing event end: %w", err)}
	}
	user, err := parseOptionalUser(msg.User)
	if err != nil {
		return &ValidationError{Err: err}
	}

	ev := models.BillingEvent{
		UUID:       id,
		EventStart: start,
		EventEnd:   end,
		Workspace:  msg.Workspace,
		User:       user,
		Quantity:   msg.Quantity,
	}

	_, err = h.Recorder.InsertEvent(ctx, ev, msg.SKU)
	return err
}

// WorkspaceSettingsHandler decodes and records WorkspaceSettings messages.
type WorkspaceSettingsHandler struct {
	Map *workspace.Map
}

func (h *WorkspaceSettingsHandler) Process(ctx context.Context, payload []byte) error {
	var msg models.WorkspaceSettingsMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return &ValidationError{Err: fmt.Errorf("decode workspace settings: %w", err)}
	}

	account, err := uuid.Parse(msg.Account)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("workspace settings account: %w", err)}
	}

	_, err = h.Map.RecordMapping(ctx, msg.Name, account)
	return err
}

// RateSamplesHandler decodes and records RateSample messages.
type RateSamplesHandler struct {
	Sampler *billing.RateSampler
}

func (h *RateSamplesHandler) Process(ctx context.Context, payload []byte) error {
	var msg models.RateSampleMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return &ValidationError{Err: fmt.Errorf("decode rate sample: %w", err)}
	}

	id, err := uuid.Parse(msg.UUID)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("rate sample uuid: %w", err)}
	}
	sampleTime, err := parseTimestamp(msg.SampleTime)
	if err != nil {
		return &ValidationError{Err: fmt.Errorf("rate sample time: %w", err)}
	}
	user, err := parseOptionalUser(msg.User)
	if err != nil {
		return &ValidationError{Err: err}
	}

	sample := models.RateSample{
		UUID:       id,
		SampleTime: sampleTime,
		Workspace:  msg.Workspace,
		User:       user,
		Rate:       msg.Rate,
	}

	return h.Sampler.IngestSample(ctx, sample, msg.SKU)
}

func parseOptionalUser(raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, fmt.Errorf("user: %w", err)
	}
	return &id, nil
}
