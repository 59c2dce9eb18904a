package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach_backend/platform/apperr"

	"github.com/google/uuid"
)

type fakeDirectory struct {
	agents []Agent
}

func (f *fakeDirectory) GetAgentByTeam(_ context.Context, teamID uuid.UUID) (Agent, error) {
	for _, a := range f.agents {
		if a.TeamID == teamID {
			return a, nil
		}
	}
	return Agent{}, ErrAgentNotFound
}

func (f *fakeDirectory) GetAgentByFromEmail(_ context.Context, email string) (Agent, error) {
	for _, a := range f.agents {
		if a.FromEmail == email {
			return a, nil
		}
	}
	return Agent{}, ErrAgentNotFound
}

func (f *fakeDirectory) ListAgentsByFromDomain(_ context.Context, domain string) ([]Agent, error) {
	var out []Agent
	for _, a := range f.agents {
		if a.FromDomain() == domain {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeClients struct {
	teams map[string]uuid.UUID
}

func (f *fakeClients) TeamBySenderEmail(_ context.Context, email string) (uuid.UUID, bool, error) {
	id, ok := f.teams[email]
	return id, ok, nil
}

func newAgent(teamID uuid.UUID, fromEmail string, age time.Duration) Agent {
	return Agent{
		ID:        uuid.New(),
		TeamID:    teamID,
		Name:      "Mia",
		FromEmail: fromEmail,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestResolveKnownSenderFastPath(t *testing.T) {
	teamID := uuid.New()
	agent := newAgent(teamID, "sales@acme.com", time.Hour)
	r := NewResolver(
		&fakeDirectory{agents: []Agent{agent}},
		&fakeClients{teams: map[string]uuid.UUID{"bob@prospect.io": teamID}},
	)

	res, err := r.Resolve(context.Background(), "bob@prospect.io", "anything@nowhere.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TeamID != teamID {
		t.Fatal("expected the known client's team to be adopted")
	}
	if !res.KnownSender {
		t.Fatal("expected fast path to mark the sender as known")
	}
}

func TestResolveExactRecipientMatch(t *testing.T) {
	teamID := uuid.New()
	agent := newAgent(teamID, "sales@acme.com", time.Hour)
	r := NewResolver(&fakeDirectory{agents: []Agent{agent}}, &fakeClients{})

	res, err := r.Resolve(context.Background(), "new@prospect.io", "sales@acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Agent.ID != agent.ID {
		t.Fatal("expected exact from_email match to win")
	}
	if res.KnownSender {
		t.Fatal("unknown sender must not be marked as known")
	}
}

func TestResolveRecipientDomainMatch(t *testing.T) {
	teamID := uuid.New()
	agent := newAgent(teamID, "sales@acme.com", time.Hour)
	r := NewResolver(&fakeDirectory{agents: []Agent{agent}}, &fakeClients{})

	res, err := r.Resolve(context.Background(), "new@prospect.io", "other@acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Agent.ID != agent.ID {
		t.Fatal("expected domain match to resolve the agent")
	}
}

func TestResolveStrippedReplySubdomain(t *testing.T) {
	teamID := uuid.New()
	agent := newAgent(teamID, "sales@acme.com", time.Hour)
	r := NewResolver(&fakeDirectory{agents: []Agent{agent}}, &fakeClients{})

	res, err := r.Resolve(context.Background(), "bob@prospect.io", "bob@reply.acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Agent.ID != agent.ID {
		t.Fatal("expected reply. subdomain strip to resolve the agent")
	}
}

func TestResolveTieBreakPrefersUnstrippedDomain(t *testing.T) {
	older := newAgent(uuid.New(), "sdr@reply.acme.com", 2*time.Hour)
	exact := newAgent(uuid.New(), "sales@reply.acme.com", time.Hour)
	r := NewResolver(&fakeDirectory{agents: []Agent{older, exact}}, &fakeClients{})

	res, err := r.Resolve(context.Background(), "bob@prospect.io", "inbound@reply.acme.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both agents share the recipient domain; creation order decides.
	if res.Agent.ID != older.ID {
		t.Fatal("expected the oldest agent to win the tie")
	}
}

func TestResolveMiss(t *testing.T) {
	r := NewResolver(&fakeDirectory{}, &fakeClients{})

	_, err := r.Resolve(context.Background(), "a@b.c", "x@y.z")
	if err == nil {
		t.Fatal("expected a resolution miss")
	}
	if !errors.Is(err, apperr.ErrTenantResolutionMiss) {
		t.Fatalf("expected ErrTenantResolutionMiss, got %v", err)
	}
}
