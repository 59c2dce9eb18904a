package events

import (
	"context"

	"outreach_backend/platform/logger"
)

// RegisterLogging subscribes a structured-log consumer for every domain
// event, so conversation activity is observable without a fan-out service.
func RegisterLogging(bus Bus, log *logger.Logger) {
	bus.Subscribe("conversation.inbound.received", HandlerFunc(func(ctx context.Context, e Event) error {
		if ev, ok := e.(InboundMessageReceived); ok {
			log.Info("inbound message received",
				"team_id", ev.TeamID.String(),
				"client_id", ev.ClientID.String(),
				"sender", ev.Sender,
			)
		}
		return nil
	}))

	bus.Subscribe("conversation.reply.dispatched", HandlerFunc(func(ctx context.Context, e Event) error {
		if ev, ok := e.(ReplyDispatched); ok {
			log.Info("reply dispatched",
				"team_id", ev.TeamID.String(),
				"client_id", ev.ClientID.String(),
				"wire_message_id", ev.WireMessageID,
			)
		}
		return nil
	}))

	bus.Subscribe("booking.recorded", HandlerFunc(func(ctx context.Context, e Event) error {
		if ev, ok := e.(BookingRecorded); ok {
			log.Info("booking recorded",
				"team_id", ev.TeamID.String(),
				"client_id", ev.ClientID.String(),
				"status", ev.Status,
				"trigger", ev.Trigger,
			)
		}
		return nil
	}))

	bus.Subscribe("campaign.outreach.sent", HandlerFunc(func(ctx context.Context, e Event) error {
		if ev, ok := e.(CampaignOutreachSent); ok {
			log.Info("campaign outreach sent",
				"team_id", ev.TeamID.String(),
				"client_id", ev.ClientID.String(),
				"subject", ev.Subject,
			)
		}
		return nil
	}))
}
