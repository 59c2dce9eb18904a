package booking

import (
	"context"
	"encoding/json"
	"errors"

	"outreach_backend/internal/conversation"
	"outreach_backend/internal/events"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

// ClientStore is the slice of the conversation store the booking path
// mutates.
type ClientStore interface {
	GetByEmailAnyTeam(ctx context.Context, email string) (conversation.Client, error)
	ApplyBookingOverride(ctx context.Context, clientID uuid.UUID, status conversation.Status, metaField, trigger string, raw json.RawMessage) error
}

// Log appends booking events.
type Log interface {
	Append(ctx context.Context, teamID, clientID uuid.UUID, status, source string, raw json.RawMessage) (Booking, error)
}

// Service applies scheduler webhooks to clients. Booking intent always wins:
// the status override is unconditional and no outbound mail is produced.
type Service struct {
	clients ClientStore
	journal Log
	bus     events.Bus
	log     *logger.Logger
}

// NewService creates the booking service.
func NewService(clients ClientStore, journal Log, bus events.Bus, log *logger.Logger) *Service {
	return &Service{clients: clients, journal: journal, bus: bus, log: log}
}

// Apply processes one webhook. The raw body is retained on the client and
// in the booking log for audit.
func (s *Service) Apply(ctx context.Context, hook Webhook, raw json.RawMessage) error {
	log := s.log.WithContext(ctx)

	email := hook.AttendeeEmail()
	if email == "" {
		return apperr.Wrap(apperr.KindValidation, "booking.Apply", apperr.ErrNoEmailInPayload)
	}

	trigger := hook.Trigger()
	client, err := s.clients.GetByEmailAnyTeam(ctx, email)
	if err != nil {
		if errors.Is(err, conversation.ErrClientNotFound) {
			log.PipelineDrop("booking", "no client for attendee", email)
			return nil
		}
		return apperr.StoreUnavailable("booking.Apply", err)
	}

	status, metaField := conversation.NextOnBooking(trigger)
	if err := s.clients.ApplyBookingOverride(ctx, client.ID, status, metaField, trigger, raw); err != nil {
		return apperr.StoreUnavailable("booking.Apply", err)
	}

	if _, err := s.journal.Append(ctx, client.TeamID, client.ID, string(status), trigger, raw); err != nil {
		// Client already moved; the journal row is secondary.
		log.DatabaseError("booking.Append", err)
	}

	s.bus.Publish(ctx, events.BookingRecorded{
		BaseEvent: events.NewBaseEvent(),
		TeamID:    client.TeamID,
		ClientID:  client.ID,
		Status:    string(status),
		Trigger:   trigger,
	})
	return nil
}
