package outbound

import (
	"context"
	"fmt"
	"time"

	"outreach_backend/platform/apperr"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

// OutboundRecord is the persistence side effect of a confirmed send: the
// appended message plus the client fields the dispatch updates.
type OutboundRecord struct {
	TeamID   uuid.UUID
	ClientID uuid.UUID

	From          string
	To            string
	Subject       string
	Text          string
	HTML          string
	WireMessageID string
	InReplyTo     string
	ProviderID    string

	// MarkContacted sets the client's status to CONTACTED (fresh outreach).
	// Replies leave the status as the state machine set it.
	MarkContacted bool
}

// Store persists a confirmed outbound send atomically: the message row and
// the client update happen in one transaction.
type Store interface {
	RecordOutbound(ctx context.Context, rec OutboundRecord) (uuid.UUID, error)
}

// Request describes one outbound dispatch.
type Request struct {
	TeamID   uuid.UUID
	ClientID uuid.UUID

	To      string
	From    string
	Subject string
	Text    string
	HTML    string

	// InReplyTo is the prior outbound wire Message-ID when replying to an
	// existing thread; empty for fresh outreach.
	InReplyTo string

	// Fresh marks first-touch outreach (client becomes CONTACTED).
	Fresh bool
}

// Result reports a completed dispatch.
type Result struct {
	MessageID     uuid.UUID
	WireMessageID string
	ProviderID    string
}

// Dispatcher sends email through the transport boundary and persists the
// outcome. Persistence happens only after a confirmed transport
// acknowledgment; a transport failure leaves no partial state behind.
type Dispatcher struct {
	sender  Sender
	store   Store
	domain  string
	replyTo string
	timeout time.Duration
	log     *logger.Logger
}

// NewDispatcher creates an outbound dispatcher.
func NewDispatcher(sender Sender, store Store, cfg config.EmailConfig, log *logger.Logger) *Dispatcher {
	timeout := cfg.GetSendTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		sender:  sender,
		store:   store,
		domain:  cfg.GetMessageIDDomain(),
		replyTo: cfg.GetReplyToAddress(),
		timeout: timeout,
		log:     log,
	}
}

// Dispatch builds threading headers, invokes the transport, and persists the
// outbound message and client update once the transport acknowledged.
// There is no automatic retry here; callers that want retry (the campaign
// worker) get it from their task queue.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (Result, error) {
	wireID := BuildMessageID(d.domain)

	headers := map[string]string{
		"Message-ID": wireID,
	}
	if req.InReplyTo != "" {
		headers["In-Reply-To"] = req.InReplyTo
		headers["References"] = req.InReplyTo
	}

	replyTo := d.replyTo
	if replyTo == "" {
		replyTo = req.From
	}

	// Detach from the caller so a torn-down webhook connection cannot leave
	// a sent email unrecorded. The bounded timeout still applies.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	providerID, err := d.sender.Send(sendCtx, Mail{
		To:      req.To,
		From:    req.From,
		ReplyTo: replyTo,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
		Headers: headers,
	})
	if err != nil {
		d.log.DispatchResult(req.To, wireID, err)
		return Result{}, apperr.Wrap(apperr.KindUnavailable, "outbound.Dispatch",
			fmt.Errorf("%w: %w", apperr.ErrTransportFailure, err))
	}

	msgID, err := d.store.RecordOutbound(sendCtx, OutboundRecord{
		TeamID:        req.TeamID,
		ClientID:      req.ClientID,
		From:          req.From,
		To:            req.To,
		Subject:       req.Subject,
		Text:          req.Text,
		HTML:          req.HTML,
		WireMessageID: wireID,
		InReplyTo:     req.InReplyTo,
		ProviderID:    providerID,
		MarkContacted: req.Fresh,
	})
	if err != nil {
		// The email left the building but the record did not land. This must
		// never pass silently.
		d.log.Error("outbound sent but not persisted",
			"to", req.To,
			"wire_message_id", wireID,
			"error", err.Error(),
		)
		return Result{}, apperr.StoreUnavailable("outbound.Dispatch", err)
	}

	d.log.DispatchResult(req.To, wireID, nil)
	return Result{MessageID: msgID, WireMessageID: wireID, ProviderID: providerID}, nil
}
