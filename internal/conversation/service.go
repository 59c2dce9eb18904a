package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"outreach_backend/internal/events"
	"outreach_backend/internal/mailrender"
	"outreach_backend/internal/outbound"
	"outreach_backend/internal/tenant"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"
	"outreach_backend/platform/sanitize"

	"github.com/google/uuid"
)

// defaultReplySubject is used when neither the thread nor the inbound mail
// carries a subject.
const defaultReplySubject = "Re: quick intro"

// transitionRetries bounds the optimistic-concurrency retry loop for the
// status update.
const transitionRetries = 3

// Store is the persistence surface the pipeline needs.
type Store interface {
	GetByEmail(ctx context.Context, teamID uuid.UUID, email string) (Client, error)
	GetByID(ctx context.Context, id uuid.UUID) (Client, error)
	Create(ctx context.Context, teamID uuid.UUID, name, email string) (Client, error)
	InsertMessage(ctx context.Context, msg Message) (Message, error)
	ApplyInboundTransition(ctx context.Context, clientID uuid.UUID, version int64, status Status) (int64, error)
	History(ctx context.Context, clientID uuid.UUID, limit int) ([]HistoryEntry, error)
	HasInboundWireID(ctx context.Context, wireID string) (bool, error)
}

// Resolver maps an inbound envelope onto a (team, agent) pair.
type Resolver interface {
	Resolve(ctx context.Context, from, to string) (tenant.Resolution, error)
}

// AgentSource looks up a team's active agent, for paths that already know
// the team.
type AgentSource interface {
	GetAgentByTeam(ctx context.Context, teamID uuid.UUID) (tenant.Agent, error)
}

// ReplyComposer generates reply bodies from the bounded history window.
type ReplyComposer interface {
	ComposeReply(ctx context.Context, agent tenant.Agent, client Client, history []HistoryEntry) (string, error)
}

// Dispatcher sends and persists outbound email.
type Dispatcher interface {
	Dispatch(ctx context.Context, req outbound.Request) (outbound.Result, error)
}

// Deduper caches inbound wire ids whose records already reached the store.
// Seen must not claim the id; the pipeline marks it only after the inbound
// message is persisted, so a redelivery after a store failure is processed
// instead of dropped.
type Deduper interface {
	Seen(ctx context.Context, wireID string) (bool, error)
	Mark(ctx context.Context, wireID string) error
}

// InboundEmail is the parsed inbound-parse webhook envelope.
type InboundEmail struct {
	From          string // extracted bare address, lowercased
	FromDisplay   string // display name when the envelope carried one
	To            string
	Subject       string
	Text          string
	HTML          string
	Headers       map[string]string
	WireMessageID string
	InReplyTo     string
}

// Service runs the inbound conversation pipeline.
type Service struct {
	store      Store
	resolver   Resolver
	agents     AgentSource
	composer   ReplyComposer
	dispatcher Dispatcher
	dedup      Deduper // nil when redis is not configured
	bus        events.Bus
	log        *logger.Logger

	autoCreate    bool
	historyWindow int
}

// NewService creates the pipeline service.
func NewService(store Store, resolver Resolver, agents AgentSource, composer ReplyComposer, dispatcher Dispatcher, dedup Deduper, bus events.Bus, cfg config.PipelineConfig, log *logger.Logger) *Service {
	return &Service{
		store:         store,
		resolver:      resolver,
		agents:        agents,
		composer:      composer,
		dispatcher:    dispatcher,
		dedup:         dedup,
		bus:           bus,
		log:           log,
		autoCreate:    cfg.GetAutoCreateClients(),
		historyWindow: cfg.GetHistoryWindow(),
	}
}

// ProcessInbound runs the pipeline for one webhook delivery. Expected
// failures (resolution miss, unknown client, AI or transport failure) are
// logged and swallowed so the webhook acknowledges; only store-availability
// failures return an error.
func (s *Service) ProcessInbound(ctx context.Context, env InboundEmail) error {
	log := s.log.WithContext(ctx)
	plain := sanitize.PlainText(env.Text, env.HTML)

	if dup, err := s.alreadySeen(ctx, env.WireMessageID); err != nil {
		return apperr.StoreUnavailable("conversation.ProcessInbound", err)
	} else if dup {
		log.PipelineDrop("dedup", "duplicate delivery", env.From)
		return nil
	}

	res, err := s.resolver.Resolve(ctx, env.From, env.To)
	if err != nil {
		if errors.Is(err, apperr.ErrTenantResolutionMiss) {
			log.PipelineDrop("resolve", "tenant resolution miss", env.From)
			return nil
		}
		return apperr.StoreUnavailable("conversation.ProcessInbound", err)
	}

	client, err := s.lookupClient(ctx, res.TeamID, env)
	if err != nil {
		if errors.Is(err, apperr.ErrClientNotFound) {
			log.PipelineDrop("client", "unknown sender", env.From)
			return nil
		}
		return apperr.StoreUnavailable("conversation.ProcessInbound", err)
	}

	inbound, err := s.store.InsertMessage(ctx, Message{
		TeamID:        res.TeamID,
		ClientID:      client.ID,
		Direction:     DirectionInbound,
		From:          env.From,
		To:            env.To,
		Subject:       env.Subject,
		Text:          plain,
		HTML:          env.HTML,
		WireMessageID: env.WireMessageID,
		InReplyTo:     env.InReplyTo,
		RawHeaders:    env.Headers,
	})
	if err != nil {
		return apperr.StoreUnavailable("conversation.ProcessInbound", err)
	}
	s.markSeen(ctx, env.WireMessageID)

	s.bus.Publish(ctx, events.InboundMessageReceived{
		BaseEvent: events.NewBaseEvent(),
		TeamID:    res.TeamID,
		ClientID:  client.ID,
		MessageID: inbound.ID,
		Sender:    env.From,
		Subject:   env.Subject,
	})

	transition, client, err := s.applyTransition(ctx, client, plain)
	if err != nil {
		return apperr.StoreUnavailable("conversation.ProcessInbound", err)
	}
	if !transition.Continue {
		log.PipelineDrop("state", transition.Reason, env.From)
		return nil
	}

	history, err := s.store.History(ctx, client.ID, s.historyWindow)
	if err != nil {
		return apperr.StoreUnavailable("conversation.ProcessInbound", err)
	}

	reply, err := s.composer.ComposeReply(ctx, res.Agent, client, history)
	if err != nil {
		log.PipelineDrop("compose", err.Error(), env.From)
		return nil
	}
	if strings.TrimSpace(reply) == "" {
		log.PipelineDrop("compose", "empty completion", env.From)
		return nil
	}

	subject := client.ThreadSubject
	if subject == "" {
		subject = env.Subject
	}
	if subject == "" {
		subject = defaultReplySubject
	}

	result, err := s.dispatchReply(ctx, res.Agent, client, reply, subject)
	if err != nil {
		if errors.Is(err, apperr.ErrStoreUnavailable) {
			return err
		}
		// Transport failure: nothing was persisted, the inbound record and
		// status change stand.
		log.PipelineDrop("dispatch", err.Error(), env.From)
		return nil
	}

	s.bus.Publish(ctx, events.ReplyDispatched{
		BaseEvent:     events.NewBaseEvent(),
		TeamID:        res.TeamID,
		ClientID:      client.ID,
		MessageID:     result.MessageID,
		WireMessageID: result.WireMessageID,
		To:            client.Email,
	})
	return nil
}

func (s *Service) alreadySeen(ctx context.Context, wireID string) (bool, error) {
	if wireID == "" {
		return false, nil
	}
	if s.dedup != nil {
		seen, err := s.dedup.Seen(ctx, wireID)
		if err != nil {
			// Dedup cache unavailability must not block ingestion; the store
			// check below still catches replays.
			s.log.Warn("dedup cache unavailable", "error", err.Error())
		} else if seen {
			return true, nil
		}
	}
	return s.store.HasInboundWireID(ctx, wireID)
}

// markSeen caches the wire id once the inbound record is durable. Best
// effort: on cache failure the store check still catches replays.
func (s *Service) markSeen(ctx context.Context, wireID string) {
	if s.dedup == nil || wireID == "" {
		return
	}
	if err := s.dedup.Mark(ctx, wireID); err != nil {
		s.log.Warn("dedup cache unavailable", "error", err.Error())
	}
}

func (s *Service) lookupClient(ctx context.Context, teamID uuid.UUID, env InboundEmail) (Client, error) {
	client, err := s.store.GetByEmail(ctx, teamID, env.From)
	if err == nil {
		return client, nil
	}
	if !errors.Is(err, ErrClientNotFound) {
		return Client{}, err
	}
	if !s.autoCreate {
		return Client{}, fmt.Errorf("%w: %s", apperr.ErrClientNotFound, env.From)
	}

	name := env.FromDisplay
	if name == "" {
		name = localPart(env.From)
	}
	return s.store.Create(ctx, teamID, name, env.From)
}

// applyTransition decides and applies the status change. Concurrent
// deliveries for the same client race on the version field; a conflict
// re-reads the client and re-decides, bounded.
func (s *Service) applyTransition(ctx context.Context, client Client, plain string) (InboundTransition, Client, error) {
	for attempt := 0; attempt < transitionRetries; attempt++ {
		transition := NextOnInbound(client.Status, plain)
		if !transition.StatusChanged {
			return transition, client, nil
		}

		newVersion, err := s.store.ApplyInboundTransition(ctx, client.ID, client.Version, transition.NewStatus)
		if err == nil {
			client.Status = transition.NewStatus
			client.Version = newVersion
			return transition, client, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return InboundTransition{}, client, err
		}

		client, err = s.store.GetByID(ctx, client.ID)
		if err != nil {
			return InboundTransition{}, client, err
		}
	}
	// Give up mutating after repeated conflicts; record-only is the safe
	// outcome under contention.
	return InboundTransition{NewStatus: client.Status, Reason: "version conflict"}, client, nil
}

func (s *Service) dispatchReply(ctx context.Context, agent tenant.Agent, client Client, reply, subject string) (outbound.Result, error) {
	prefilled := mailrender.MeetingPrefill(agent.MeetingURL, client.Name, client.Email)
	sig := mailrender.SignatureForAgent(agent)

	htmlBody := mailrender.RenderHTML(reply, prefilled, sig, client.Name, true, agent.Name)
	textBody := mailrender.RenderText(reply, prefilled, sig, client.Name, agent.Name)

	return s.dispatcher.Dispatch(ctx, outbound.Request{
		TeamID:    client.TeamID,
		ClientID:  client.ID,
		To:        client.Email,
		From:      agent.FromEmail,
		Subject:   subject,
		Text:      textBody,
		HTML:      htmlBody,
		InReplyTo: client.LastOutboundMessageID,
	})
}

// ManualSend delivers operator-provided content to a client, reusing the
// sanitize/render/dispatch primitives. Fresh sends mark the client
// CONTACTED and start a thread.
func (s *Service) ManualSend(ctx context.Context, clientID uuid.UUID, subject, text, inReplyTo string) (outbound.Result, error) {
	client, err := s.store.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return outbound.Result{}, apperr.NotFound("client not found")
		}
		return outbound.Result{}, apperr.StoreUnavailable("conversation.ManualSend", err)
	}

	agent, err := s.agents.GetAgentByTeam(ctx, client.TeamID)
	if err != nil {
		if errors.Is(err, tenant.ErrAgentNotFound) {
			return outbound.Result{}, apperr.BadRequest("agent not configured")
		}
		return outbound.Result{}, apperr.StoreUnavailable("conversation.ManualSend", err)
	}

	prefilled := mailrender.MeetingPrefill(agent.MeetingURL, client.Name, client.Email)
	sig := mailrender.SignatureForAgent(agent)
	clean := mailrender.Sanitize(text, agent.Name)

	return s.dispatcher.Dispatch(ctx, outbound.Request{
		TeamID:    client.TeamID,
		ClientID:  client.ID,
		To:        client.Email,
		From:      agent.FromEmail,
		Subject:   subject,
		Text:      mailrender.RenderText(clean, prefilled, sig, client.Name, agent.Name),
		HTML:      mailrender.RenderHTML(clean, prefilled, sig, client.Name, false, agent.Name),
		InReplyTo: inReplyTo,
		Fresh:     true,
	})
}

func localPart(addr string) string {
	if at := strings.Index(addr, "@"); at > 0 {
		return addr[:at]
	}
	return addr
}
