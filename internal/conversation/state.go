package conversation

import (
	"regexp"
	"strings"
)

// Status is the client lifecycle state.
type Status string

const (
	StatusNew         Status = "NEW"
	StatusContacted   Status = "CONTACTED"
	StatusReplied     Status = "REPLIED"
	StatusBooked      Status = "BOOKED"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
	StatusStopped     Status = "STOPPED"
	StatusBounced     Status = "BOUNCED"
)

// TerminalForAutomation reports whether automated replies have ceased for
// this status. Inbound messages are still recorded afterwards.
func (s Status) TerminalForAutomation() bool {
	switch s {
	case StatusBooked, StatusCancelled, StatusRescheduled:
		return true
	}
	return false
}

// Valid reports whether s is one of the defined lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusContacted, StatusReplied, StatusBooked,
		StatusCancelled, StatusRescheduled, StatusStopped, StatusBounced:
		return true
	}
	return false
}

// InboundTransition is the state machine's decision for one inbound message.
// The message itself is always recorded regardless of the decision.
type InboundTransition struct {
	// NewStatus is the status after the event.
	NewStatus Status
	// StatusChanged is true when the client record must be updated.
	StatusChanged bool
	// Continue is true when the pipeline should go on to compose and
	// dispatch an automated reply.
	Continue bool
	// Reason names why the pipeline stops, for logs.
	Reason string
}

var outOfOfficeRe = regexp.MustCompile(`(?i)(out\s?of\s?office|auto-?reply|vacation|away\suntil)`)

// IsOutOfOffice classifies auto-responder content by pattern match.
func IsOutOfOffice(text string) bool {
	return outOfOfficeRe.MatchString(text)
}

// NextOnInbound computes the transition for an inbound message given the
// client's current status and the message's plain-text content.
func NextOnInbound(current Status, plain string) InboundTransition {
	if current.TerminalForAutomation() {
		return InboundTransition{NewStatus: current, Reason: "terminal status"}
	}
	if current == StatusStopped {
		return InboundTransition{NewStatus: current, Reason: "client opted out"}
	}
	if IsOutOfOffice(plain) {
		// Status still advances; only the automated reply is suppressed.
		return InboundTransition{NewStatus: StatusReplied, StatusChanged: true, Reason: "out of office"}
	}
	return InboundTransition{NewStatus: StatusReplied, StatusChanged: true, Continue: true}
}

// Booking trigger events accepted on the booking webhook.
const (
	TriggerBookingCreated     = "BOOKING_CREATED"
	TriggerBookingCancelled   = "BOOKING_CANCELLED"
	TriggerBookingRescheduled = "BOOKING_RESCHEDULED"
)

// NextOnBooking maps a booking trigger event onto the authoritative status
// override and the metadata timestamp field to record. Booking intent always
// wins, including over STOPPED. Unknown triggers default to a created
// booking, matching the upstream provider's behavior.
func NextOnBooking(trigger string) (Status, string) {
	switch strings.ToUpper(strings.TrimSpace(trigger)) {
	case TriggerBookingCancelled:
		return StatusCancelled, "cancelledAt"
	case TriggerBookingRescheduled:
		return StatusRescheduled, "rescheduledAt"
	default:
		return StatusBooked, "bookedAt"
	}
}
