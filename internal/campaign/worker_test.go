package campaign

import (
	"context"
	"testing"

	"outreach_backend/internal/conversation"
	"outreach_backend/internal/events"
	"outreach_backend/internal/outbound"
	"outreach_backend/internal/tenant"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
)

type fakeReader struct {
	clients map[uuid.UUID]conversation.Client
}

func (f *fakeReader) GetByID(_ context.Context, id uuid.UUID) (conversation.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return conversation.Client{}, conversation.ErrClientNotFound
	}
	return c, nil
}

type fakeAgents struct {
	agent tenant.Agent
	err   error
}

func (f *fakeAgents) GetAgentByTeam(context.Context, uuid.UUID) (tenant.Agent, error) {
	return f.agent, f.err
}

type fakeInitialComposer struct {
	subject string
	body    string
	err     error
}

func (f *fakeInitialComposer) ComposeInitial(context.Context, tenant.Agent, conversation.Client) (string, string, error) {
	return f.subject, f.body, f.err
}

type fakeDispatcher struct {
	requests []outbound.Request
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req outbound.Request) (outbound.Result, error) {
	f.requests = append(f.requests, req)
	return outbound.Result{MessageID: uuid.New(), WireMessageID: "<out@acme.io>"}, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type workerFixture struct {
	reader     *fakeReader
	composer   *fakeInitialComposer
	dispatcher *fakeDispatcher
	bus        *recordingBus
	worker     *Worker

	team   uuid.UUID
	client conversation.Client
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	team := uuid.New()
	client := conversation.Client{
		ID:     uuid.New(),
		TeamID: team,
		Name:   "Dana",
		Email:  "dana@prospect.com",
		Status: conversation.StatusNew,
	}
	agent := tenant.Agent{
		ID:         uuid.New(),
		TeamID:     team,
		Name:       "Sam Rivera",
		FromEmail:  "sam@acme.io",
		MeetingURL: "https://cal.com/sam/intro",
	}

	f := &workerFixture{
		reader:     &fakeReader{clients: map[uuid.UUID]conversation.Client{client.ID: client}},
		composer:   &fakeInitialComposer{subject: "Quick intro", body: "Thought this might be relevant for you."},
		dispatcher: &fakeDispatcher{},
		bus:        &recordingBus{},
		team:       team,
		client:     client,
	}
	f.worker = &Worker{
		clients:    f.reader,
		agents:     &fakeAgents{agent: agent},
		composer:   f.composer,
		dispatcher: f.dispatcher,
		bus:        f.bus,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		log:        logger.New("test"),
	}
	return f
}

func outreachTask(t *testing.T, teamID, clientID uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := NewInitialOutreachTask(InitialOutreachPayload{
		TeamID:   teamID.String(),
		ClientID: clientID.String(),
	})
	if err != nil {
		t.Fatalf("NewInitialOutreachTask: %v", err)
	}
	return task
}

func TestHandleInitialOutreachDispatches(t *testing.T) {
	f := newWorkerFixture(t)

	err := f.worker.handleInitialOutreach(context.Background(), outreachTask(t, f.team, f.client.ID))
	if err != nil {
		t.Fatalf("handleInitialOutreach: %v", err)
	}
	if len(f.dispatcher.requests) != 1 {
		t.Fatalf("dispatched = %d, want 1", len(f.dispatcher.requests))
	}

	req := f.dispatcher.requests[0]
	if !req.Fresh {
		t.Fatal("initial outreach must be a fresh send")
	}
	if req.To != f.client.Email || req.Subject != "Quick intro" {
		t.Fatalf("req to=%q subject=%q", req.To, req.Subject)
	}
	if len(f.bus.published) != 1 || f.bus.published[0].EventName() != "campaign.outreach.sent" {
		t.Fatalf("published = %v", f.bus.published)
	}
}

func TestHandleInitialOutreachEmptyBodySkipped(t *testing.T) {
	f := newWorkerFixture(t)
	f.composer.body = "  \n"

	err := f.worker.handleInitialOutreach(context.Background(), outreachTask(t, f.team, f.client.ID))
	if err != nil {
		t.Fatalf("an empty completion must not be retried, got %v", err)
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatal("an empty completion must never be dispatched")
	}
	if len(f.bus.published) != 0 {
		t.Fatal("nothing was sent, nothing should be announced")
	}
}

func TestHandleInitialOutreachSkipsNonNewClient(t *testing.T) {
	f := newWorkerFixture(t)
	f.client.Status = conversation.StatusReplied
	f.reader.clients[f.client.ID] = f.client

	err := f.worker.handleInitialOutreach(context.Background(), outreachTask(t, f.team, f.client.ID))
	if err != nil {
		t.Fatalf("stale target must be skipped, got %v", err)
	}
	if len(f.dispatcher.requests) != 0 {
		t.Fatal("a contacted client must not get another first touch")
	}
}
