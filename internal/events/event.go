// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"outreach_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Conversation Domain Events
// =============================================================================

// InboundMessageReceived is published when an inbound email has been
// recorded for a client.
type InboundMessageReceived struct {
	BaseEvent
	TeamID    uuid.UUID `json:"teamId"`
	ClientID  uuid.UUID `json:"clientId"`
	MessageID uuid.UUID `json:"messageId"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
}

func (e InboundMessageReceived) EventName() string { return "conversation.inbound.received" }

// ReplyDispatched is published after an automated reply has been sent and
// persisted.
type ReplyDispatched struct {
	BaseEvent
	TeamID        uuid.UUID `json:"teamId"`
	ClientID      uuid.UUID `json:"clientId"`
	MessageID     uuid.UUID `json:"messageId"`
	WireMessageID string    `json:"wireMessageId"`
	To            string    `json:"to"`
}

func (e ReplyDispatched) EventName() string { return "conversation.reply.dispatched" }

// =============================================================================
// Booking Domain Events
// =============================================================================

// BookingRecorded is published when a booking webhook has been applied to a
// client.
type BookingRecorded struct {
	BaseEvent
	TeamID   uuid.UUID `json:"teamId"`
	ClientID uuid.UUID `json:"clientId"`
	Status   string    `json:"status"`
	Trigger  string    `json:"trigger"`
}

func (e BookingRecorded) EventName() string { return "booking.recorded" }

// =============================================================================
// Campaign Domain Events
// =============================================================================

// CampaignOutreachSent is published when an initial outreach email has been
// dispatched to a NEW client.
type CampaignOutreachSent struct {
	BaseEvent
	TeamID   uuid.UUID `json:"teamId"`
	ClientID uuid.UUID `json:"clientId"`
	Subject  string    `json:"subject"`
}

func (e CampaignOutreachSent) EventName() string { return "campaign.outreach.sent" }
