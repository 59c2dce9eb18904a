package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"outreach_backend/internal/conversation"
	"outreach_backend/internal/events"
	"outreach_backend/internal/mailrender"
	"outreach_backend/internal/outbound"
	"outreach_backend/internal/tenant"
	"outreach_backend/platform/config"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"
)

// ClientReader loads kickoff targets.
type ClientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Client, error)
}

// AgentSource looks up the team's sending persona.
type AgentSource interface {
	GetAgentByTeam(ctx context.Context, teamID uuid.UUID) (tenant.Agent, error)
}

// InitialComposer generates first-touch subject and body.
type InitialComposer interface {
	ComposeInitial(ctx context.Context, agent tenant.Agent, client conversation.Client) (subject, body string, err error)
}

// Dispatcher sends and persists outbound email.
type Dispatcher interface {
	Dispatch(ctx context.Context, req outbound.Request) (outbound.Result, error)
}

// Worker drains the campaign queue. Delivery is throttled process-wide so a
// large kickoff cannot burst the provider.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	clients    ClientReader
	agents     AgentSource
	composer   InitialComposer
	dispatcher Dispatcher
	bus        events.Bus
	limiter    *rate.Limiter
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, ratePerSecond float64, clients ClientReader, agents AgentSource, composer InitialComposer, dispatcher Dispatcher, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		clients:    clients,
		agents:     agents,
		composer:   composer,
		dispatcher: dispatcher,
		bus:        bus,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		log:        log,
	}

	mux.HandleFunc(TaskInitialOutreach, w.handleInitialOutreach)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("campaign worker stopped", "error", err)
	}
}

// handleInitialOutreach processes one kickoff target. Returning an error
// redelivers the task, so targets that became stale since enqueue are
// skipped with a nil return instead.
func (w *Worker) handleInitialOutreach(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseInitialOutreachPayload(task)
	if err != nil {
		return err
	}

	teamID, err := uuid.Parse(payload.TeamID)
	if err != nil {
		return err
	}
	clientID, err := uuid.Parse(payload.ClientID)
	if err != nil {
		return err
	}

	client, err := w.clients.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, conversation.ErrClientNotFound) {
			return nil
		}
		return err
	}
	if client.Status != conversation.StatusNew {
		w.log.Info("campaign target skipped", "client_id", clientID.String(), "status", string(client.Status))
		return nil
	}

	agent, err := w.agents.GetAgentByTeam(ctx, teamID)
	if err != nil {
		if errors.Is(err, tenant.ErrAgentNotFound) {
			w.log.Warn("campaign target skipped, no agent", "team_id", teamID.String())
			return nil
		}
		return err
	}

	subject, body, err := w.composer.ComposeInitial(ctx, agent, client)
	if err != nil {
		return err
	}
	// An empty completion is deterministic; retrying would dispatch the same
	// content-free email.
	if strings.TrimSpace(body) == "" {
		w.log.Warn("campaign target skipped, empty completion", "client_id", clientID.String())
		return nil
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	prefilled := mailrender.MeetingPrefill(agent.MeetingURL, client.Name, client.Email)
	sig := mailrender.SignatureForAgent(agent)

	_, err = w.dispatcher.Dispatch(ctx, outbound.Request{
		TeamID:   teamID,
		ClientID: client.ID,
		To:       client.Email,
		From:     agent.FromEmail,
		Subject:  subject,
		Text:     mailrender.RenderText(body, prefilled, sig, client.Name, agent.Name),
		HTML:     mailrender.RenderHTML(body, prefilled, sig, client.Name, false, agent.Name),
		Fresh:    true,
	})
	if err != nil {
		return err
	}

	w.bus.Publish(ctx, events.CampaignOutreachSent{
		BaseEvent: events.NewBaseEvent(),
		TeamID:    teamID,
		ClientID:  client.ID,
		Subject:   subject,
	})
	return nil
}
