package conversation

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"outreach_backend/internal/events"
	"outreach_backend/internal/outbound"
	"outreach_backend/internal/tenant"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	clients map[string]Client
	byID    map[uuid.UUID]Client

	inserted    []Message
	history     []HistoryEntry
	wireSeen    map[string]bool
	created     []Client
	transitions []Status

	conflictsLeft int
	insertErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients:  make(map[string]Client),
		byID:     make(map[uuid.UUID]Client),
		wireSeen: make(map[string]bool),
	}
}

func (s *fakeStore) put(c Client) {
	s.clients[c.TeamID.String()+"|"+c.Email] = c
	s.byID[c.ID] = c
}

func (s *fakeStore) GetByEmail(_ context.Context, teamID uuid.UUID, email string) (Client, error) {
	c, ok := s.clients[teamID.String()+"|"+email]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (Client, error) {
	c, ok := s.byID[id]
	if !ok {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (s *fakeStore) Create(_ context.Context, teamID uuid.UUID, name, email string) (Client, error) {
	c := Client{
		ID:      uuid.New(),
		TeamID:  teamID,
		Name:    name,
		Email:   email,
		Status:  StatusNew,
		Version: 1,
	}
	s.put(c)
	s.created = append(s.created, c)
	return c, nil
}

func (s *fakeStore) InsertMessage(_ context.Context, msg Message) (Message, error) {
	if s.insertErr != nil {
		return Message{}, s.insertErr
	}
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	s.inserted = append(s.inserted, msg)
	return msg, nil
}

func (s *fakeStore) ApplyInboundTransition(_ context.Context, clientID uuid.UUID, version int64, status Status) (int64, error) {
	c, ok := s.byID[clientID]
	if !ok {
		return 0, ErrClientNotFound
	}
	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		c.Version++
		s.put(c)
		return 0, ErrVersionConflict
	}
	if c.Version != version {
		return 0, ErrVersionConflict
	}
	c.Status = status
	c.Version++
	s.put(c)
	s.transitions = append(s.transitions, status)
	return c.Version, nil
}

func (s *fakeStore) History(context.Context, uuid.UUID, int) ([]HistoryEntry, error) {
	return s.history, nil
}

func (s *fakeStore) HasInboundWireID(_ context.Context, wireID string) (bool, error) {
	return s.wireSeen[wireID], nil
}

type fakeResolver struct {
	res tenant.Resolution
	err error
}

func (r *fakeResolver) Resolve(context.Context, string, string) (tenant.Resolution, error) {
	return r.res, r.err
}

type fakeAgents struct {
	agent tenant.Agent
	err   error
}

func (a *fakeAgents) GetAgentByTeam(context.Context, uuid.UUID) (tenant.Agent, error) {
	return a.agent, a.err
}

type fakeComposer struct {
	reply   string
	err     error
	history []HistoryEntry
	calls   int
}

func (c *fakeComposer) ComposeReply(_ context.Context, _ tenant.Agent, _ Client, history []HistoryEntry) (string, error) {
	c.calls++
	c.history = history
	return c.reply, c.err
}

type fakeDispatcher struct {
	requests []outbound.Request
	result   outbound.Result
	err      error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, req outbound.Request) (outbound.Result, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return outbound.Result{}, d.err
	}
	return d.result, nil
}

type fakeBus struct {
	published []events.Event
}

func (b *fakeBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}

func (b *fakeBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

type fakeDeduper struct {
	seen   map[string]bool
	marked []string
	err    error
}

func (d *fakeDeduper) Seen(_ context.Context, wireID string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.seen[wireID], nil
}

func (d *fakeDeduper) Mark(_ context.Context, wireID string) error {
	if d.err != nil {
		return d.err
	}
	d.seen[wireID] = true
	d.marked = append(d.marked, wireID)
	return nil
}

type pipelineCfg struct {
	autoCreate bool
	window     int
}

func (c pipelineCfg) GetAutoCreateClients() bool { return c.autoCreate }
func (c pipelineCfg) GetHistoryWindow() int      { return c.window }
func (c pipelineCfg) GetDedupTTL() time.Duration { return time.Hour }

type pipelineFixture struct {
	store      *fakeStore
	resolver   *fakeResolver
	composer   *fakeComposer
	dispatcher *fakeDispatcher
	bus        *fakeBus
	dedup      *fakeDeduper
	service    *Service

	team  uuid.UUID
	agent tenant.Agent
}

func newPipelineFixture(t *testing.T, autoCreate bool) *pipelineFixture {
	t.Helper()

	team := uuid.New()
	agent := tenant.Agent{
		ID:         uuid.New(),
		TeamID:     team,
		Name:       "Sam Rivera",
		FromEmail:  "sam@acme.io",
		MeetingURL: "https://cal.com/sam/intro",
	}

	f := &pipelineFixture{
		store:      newFakeStore(),
		resolver:   &fakeResolver{res: tenant.Resolution{TeamID: team, Agent: agent}},
		composer:   &fakeComposer{reply: "Happy to walk you through it."},
		dispatcher: &fakeDispatcher{result: outbound.Result{MessageID: uuid.New(), WireMessageID: "<new@acme.io>"}},
		bus:        &fakeBus{},
		dedup:      &fakeDeduper{seen: make(map[string]bool)},
		team:       team,
		agent:      agent,
	}
	f.service = NewService(
		f.store, f.resolver, &fakeAgents{agent: agent}, f.composer, f.dispatcher,
		f.dedup, f.bus, pipelineCfg{autoCreate: autoCreate, window: 30}, logger.New("test"),
	)
	return f
}

func (f *pipelineFixture) knownClient(status Status) Client {
	c := Client{
		ID:                    uuid.New(),
		TeamID:                f.team,
		Name:                  "Dana",
		Email:                 "dana@prospect.com",
		Status:                status,
		ThreadSubject:         "Quick intro",
		LastOutboundMessageID: "<prev@acme.io>",
		Version:               1,
	}
	f.store.put(c)
	return c
}

func inboundFrom(addr string) InboundEmail {
	return InboundEmail{
		From:          addr,
		To:            "sam@acme.io",
		Subject:       "Re: Quick intro",
		Text:          "Sounds good, can you share pricing?",
		WireMessageID: "<inbound-1@prospect.com>",
	}
}

func TestProcessInboundHappyPath(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)

	if err := f.service.ProcessInbound(context.Background(), inboundFrom(client.Email)); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if len(f.store.inserted) != 1 {
		t.Fatalf("inserted %d messages, want 1", len(f.store.inserted))
	}
	if f.store.inserted[0].Direction != DirectionInbound {
		t.Fatalf("direction = %s", f.store.inserted[0].Direction)
	}

	updated := f.store.byID[client.ID]
	if updated.Status != StatusReplied {
		t.Fatalf("status = %s, want REPLIED", updated.Status)
	}

	if len(f.dispatcher.requests) != 1 {
		t.Fatalf("dispatched %d requests, want 1", len(f.dispatcher.requests))
	}
	req := f.dispatcher.requests[0]
	if req.InReplyTo != "<prev@acme.io>" {
		t.Fatalf("inReplyTo = %q, want thread reference", req.InReplyTo)
	}
	if req.Subject != "Quick intro" {
		t.Fatalf("subject = %q, want stored thread subject", req.Subject)
	}
	if req.Fresh {
		t.Fatal("reply must not be marked fresh")
	}

	var sawInbound, sawReply bool
	for _, e := range f.bus.published {
		switch e.(type) {
		case events.InboundMessageReceived:
			sawInbound = true
		case events.ReplyDispatched:
			sawReply = true
		}
	}
	if !sawInbound || !sawReply {
		t.Fatalf("events published = %v, want inbound + reply", f.bus.published)
	}
}

func TestProcessInboundSubjectFallback(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)
	client.ThreadSubject = ""
	f.store.put(client)

	env := inboundFrom(client.Email)
	env.Subject = ""
	if err := f.service.ProcessInbound(context.Background(), env); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if got := f.dispatcher.requests[0].Subject; got != "Re: quick intro" {
		t.Fatalf("subject = %q, want default", got)
	}
}

func TestProcessInboundUnknownSenderDropped(t *testing.T) {
	f := newPipelineFixture(t, false)

	if err := f.service.ProcessInbound(context.Background(), inboundFrom("stranger@nowhere.com")); err != nil {
		t.Fatalf("unknown sender must be acknowledged, got %v", err)
	}
	if len(f.store.inserted) != 0 {
		t.Fatal("nothing should be recorded for an unknown sender")
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatal("nothing should be dispatched for an unknown sender")
	}
}

func TestProcessInboundAutoCreate(t *testing.T) {
	f := newPipelineFixture(t, true)

	env := inboundFrom("new.prospect@startup.io")
	env.FromDisplay = "New Prospect"
	if err := f.service.ProcessInbound(context.Background(), env); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if len(f.store.created) != 1 {
		t.Fatalf("created %d clients, want 1", len(f.store.created))
	}
	if f.store.created[0].Name != "New Prospect" {
		t.Fatalf("name = %q, want display name", f.store.created[0].Name)
	}
	if len(f.dispatcher.requests) != 1 {
		t.Fatal("auto-created client should still get a reply")
	}
}

func TestProcessInboundResolutionMissDropped(t *testing.T) {
	f := newPipelineFixture(t, false)
	f.resolver.err = apperr.Wrap(apperr.KindNotFound, "tenant.Resolve",
		fmt.Errorf("%w: no match", apperr.ErrTenantResolutionMiss))

	if err := f.service.ProcessInbound(context.Background(), inboundFrom("anyone@anywhere.com")); err != nil {
		t.Fatalf("resolution miss must be acknowledged, got %v", err)
	}
	if len(f.store.inserted) != 0 {
		t.Fatal("nothing should be recorded on a resolution miss")
	}
}

func TestProcessInboundOutOfOffice(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)

	env := inboundFrom(client.Email)
	env.Text = "I am out of office until Friday."
	if err := f.service.ProcessInbound(context.Background(), env); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if len(f.store.inserted) != 1 {
		t.Fatal("out-of-office mail must still be recorded")
	}
	if got := f.store.byID[client.ID].Status; got != StatusReplied {
		t.Fatalf("status = %s, want REPLIED", got)
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatal("no reply should be sent to an auto-responder")
	}
}

func TestProcessInboundTerminalStatusRecordsOnly(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusBooked)

	if err := f.service.ProcessInbound(context.Background(), inboundFrom(client.Email)); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if len(f.store.inserted) != 1 {
		t.Fatal("inbound mail must be recorded even after booking")
	}
	if got := f.store.byID[client.ID].Status; got != StatusBooked {
		t.Fatalf("status = %s, terminal status must not change", got)
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatal("no reply after a terminal status")
	}
}

func TestProcessInboundStoppedClient(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusStopped)

	if err := f.service.ProcessInbound(context.Background(), inboundFrom(client.Email)); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}
	if got := f.store.byID[client.ID].Status; got != StatusStopped {
		t.Fatalf("status = %s, STOPPED must stick", got)
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatal("stopped client must never get automated mail")
	}
}

func TestProcessInboundDuplicateDelivery(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)

	env := inboundFrom(client.Email)
	f.dedup.seen[env.WireMessageID] = true

	if err := f.service.ProcessInbound(context.Background(), env); err != nil {
		t.Fatalf("duplicate must be acknowledged, got %v", err)
	}
	if len(f.store.inserted) != 0 {
		t.Fatal("duplicate delivery must not be recorded twice")
	}
}

func TestProcessInboundDedupFallsBackToStore(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)

	env := inboundFrom(client.Email)
	f.dedup.err = errors.New("redis down")
	f.store.wireSeen[env.WireMessageID] = true

	if err := f.service.ProcessInbound(context.Background(), env); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}
	if len(f.store.inserted) != 0 {
		t.Fatal("store-level dedup must still catch the replay")
	}
}

func TestProcessInboundComposeFailurePreservesStatus(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)
	f.composer.err = apperr.Wrap(apperr.KindUnavailable, "composer.ComposeReply", apperr.ErrAIProviderFailure)

	if err := f.service.ProcessInbound(context.Background(), inboundFrom(client.Email)); err != nil {
		t.Fatalf("compose failure must be acknowledged, got %v", err)
	}

	if got := f.store.byID[client.ID].Status; got != StatusReplied {
		t.Fatalf("status = %s, the transition must survive a compose failure", got)
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatal("nothing should be dispatched when composition fails")
	}
}

func TestProcessInboundTransportFailureAcknowledged(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)
	f.dispatcher.err = apperr.Wrap(apperr.KindUnavailable, "outbound.Dispatch",
		fmt.Errorf("%w: 502", apperr.ErrTransportFailure))

	if err := f.service.ProcessInbound(context.Background(), inboundFrom(client.Email)); err != nil {
		t.Fatalf("transport failure must be acknowledged, got %v", err)
	}
	if got := f.store.byID[client.ID].Status; got != StatusReplied {
		t.Fatalf("status = %s, want REPLIED", got)
	}
}

func TestProcessInboundStoreFailurePropagates(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)
	f.store.insertErr = errors.New("connection refused")

	err := f.service.ProcessInbound(context.Background(), inboundFrom(client.Email))
	if err == nil {
		t.Fatal("store outage must propagate so the provider retries")
	}
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want store-unavailable", err)
	}
}

func TestProcessInboundRedeliveryAfterStoreFailure(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)
	env := inboundFrom(client.Email)

	f.store.insertErr = errors.New("connection refused")
	if err := f.service.ProcessInbound(context.Background(), env); !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want store-unavailable", err)
	}
	if len(f.dedup.marked) != 0 {
		t.Fatal("a delivery that never reached the store must not be cached as seen")
	}

	f.store.insertErr = nil
	if err := f.service.ProcessInbound(context.Background(), env); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if len(f.store.inserted) != 1 {
		t.Fatalf("inserted = %d, the redelivery must be recorded", len(f.store.inserted))
	}
	if len(f.dispatcher.requests) != 1 {
		t.Fatalf("dispatched = %d, the redelivery must be processed", len(f.dispatcher.requests))
	}
	if !f.dedup.seen[env.WireMessageID] {
		t.Fatal("the wire id must be cached once the record is durable")
	}
}

func TestProcessInboundVersionConflictRetries(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusContacted)
	f.store.conflictsLeft = 1

	if err := f.service.ProcessInbound(context.Background(), inboundFrom(client.Email)); err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}
	if got := f.store.byID[client.ID].Status; got != StatusReplied {
		t.Fatalf("status = %s, retry should land the transition", got)
	}
}

func TestManualSendMarksFresh(t *testing.T) {
	f := newPipelineFixture(t, false)
	client := f.knownClient(StatusNew)

	if _, err := f.service.ManualSend(context.Background(), client.ID, "Quick intro", "Hello there", ""); err != nil {
		t.Fatalf("ManualSend: %v", err)
	}
	if len(f.dispatcher.requests) != 1 {
		t.Fatalf("dispatched %d, want 1", len(f.dispatcher.requests))
	}
	if !f.dispatcher.requests[0].Fresh {
		t.Fatal("manual send must mark the client contacted")
	}
}

func TestManualSendUnknownClient(t *testing.T) {
	f := newPipelineFixture(t, false)

	_, err := f.service.ManualSend(context.Background(), uuid.New(), "s", "t", "")
	if err == nil {
		t.Fatal("expected an error for an unknown client")
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindNotFound {
		t.Fatalf("err = %v, want not-found", err)
	}
}
