// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// Escrow lifecycle events
	EscrowStateChanged EventType = "escrow.state"
	EscrowSetupStep    EventType = "escrow.setup"

	// Swap events
	SwapCompleted EventType = "swap.completed"
	SwapFailed    EventType = "swap.failed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// NewBaseEvent stamps an event of the given type with the current time.
func NewBaseEvent(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// EscrowStateChangedEvent is emitted when validation moves an escrow to a new state.
type EscrowStateChangedEvent struct {
	BaseEvent
	Escrow     string
	Collection string
	From       string
	To         string
}

// EscrowSetupStepEvent is emitted after each confirmed setup transaction.
type EscrowSetupStepEvent struct {
	BaseEvent
	Escrow    string
	Step      string // "initialize", "delegate", "fund"
	Signature string
}

// SwapCompletedEvent is emitted when a swap transaction is confirmed.
type SwapCompletedEvent struct {
	BaseEvent
	Direction string // "nft_to_tokens", "tokens_to_nft"
	Asset     string
	Wallet    string
	Signature string
}

// SwapFailedEvent is emitted when a swap ends with an error.
type SwapFailedEvent struct {
	BaseEvent
	Direction string
	Asset     string
	Wallet    string
	Kind      string
	Error     error
}
