// Package models holds the shared entity and message types for the
// accounting engine: the five store-backed entities from the data model
// and the three wire message schemas ingested from the bus.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkspaceAccount records that a named workspace belongs to a billing
// account. Created on first observation; never updated or deleted.
type WorkspaceAccount struct {
	Workspace string
	Account   uuid.UUID
}

// BillingItem (a.k.a. SKU) is a sellable product.
type BillingItem struct {
	UUID uuid.UUID
	SKU  string
	Name string
	Unit string
}

// BillingItemPrice gives the price-per-unit of a BillingItem in force
// between ValidFrom and ValidUntil. ValidUntil is nil for the current,
// open-ended price.
type BillingItemPrice struct {
	UUID         uuid.UUID
	ItemID       uuid.UUID
	Price        decimal.Decimal
	ValidFrom    time.Time
	ValidUntil   *time.Time
	ConfiguredAt time.Time
}

// BillingItemPriceWithSKU pairs a price with the SKU of its item, the shape
// returned by catalogue price listings.
type BillingItemPriceWithSKU struct {
	BillingItemPrice
	SKU string
}

// BillingEvent records a workspace's consumption of a BillingItem over
// [EventStart, EventEnd).
type BillingEvent struct {
	UUID       uuid.UUID
	EventStart time.Time
	EventEnd   time.Time
	ItemID     uuid.UUID
	Workspace  string
	User       *uuid.UUID
	Quantity   float64
}

// BillingEventView is a BillingEvent joined with its item's SKU, the shape
// exposed over the read API and returned by event queries.
type BillingEventView struct {
	UUID       uuid.UUID
	EventStart time.Time
	EventEnd   time.Time
	SKU        string
	Workspace  string
	User       *uuid.UUID
	Quantity   float64
}

// RateSample is a point-in-time measurement of the instantaneous
// consumption rate (units per second) for a (workspace, SKU) pair.
type RateSample struct {
	UUID       uuid.UUID
	SampleTime time.Time
	ItemID     uuid.UUID
	Workspace  string
	User       *uuid.UUID
	Rate       float64
}

// BillingEventMessage is the wire schema for the billing-events topic.
type BillingEventMessage struct {
	UUID       string  `json:"uuid"`
	EventStart string  `json:"event_start"`
	EventEnd   string  `json:"event_end"`
	SKU        string  `json:"sku"`
	Workspace  string  `json:"workspace"`
	User       *string `json:"user,omitempty"`
	Quantity   float64 `json:"quantity"`
}

// WorkspaceSettingsMessage is the wire schema for the workspace-settings
// topic.
type WorkspaceSettingsMessage struct {
	Name    string `json:"name"`
	Account string `json:"account"`
}

// RateSampleMessage is the wire schema for the
// billing-events-consumption-rate-samples topic.
type RateSampleMessage struct {
	UUID       string  `json:"uuid"`
	SampleTime string  `json:"sample_time"`
	SKU        string  `json:"sku"`
	Workspace  string  `json:"workspace"`
	User       *string `json:"user,omitempty"`
	Rate       float64 `json:"rate"`
}
