package tenant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"outreach_backend/platform/apperr"

	"github.com/google/uuid"
)

// replySubdomainPrefix is the literal subdomain providers prepend to the
// recipient domain for inbound-parse addresses.
const replySubdomainPrefix = "reply."

// AgentDirectory is the read surface the resolver needs over agents.
type AgentDirectory interface {
	GetAgentByTeam(ctx context.Context, teamID uuid.UUID) (Agent, error)
	GetAgentByFromEmail(ctx context.Context, email string) (Agent, error)
	ListAgentsByFromDomain(ctx context.Context, domain string) ([]Agent, error)
}

// ClientLookup locates the team of an already-known sender. Implemented by
// the conversation repository; established threads never re-derive their
// tenant from recipient heuristics.
type ClientLookup interface {
	TeamBySenderEmail(ctx context.Context, email string) (uuid.UUID, bool, error)
}

// Resolution is the single, unambiguous outcome of tenant resolution.
type Resolution struct {
	TeamID uuid.UUID
	Agent  Agent
	// KnownSender is true when the sender matched an existing client record
	// (the fast path).
	KnownSender bool
}

// Resolver maps an inbound envelope onto exactly one (team, agent) pair by
// trying an ordered chain of strategies; the first match wins.
type Resolver struct {
	agents  AgentDirectory
	clients ClientLookup
}

// NewResolver creates a tenant resolver.
func NewResolver(agents AgentDirectory, clients ClientLookup) *Resolver {
	return &Resolver{agents: agents, clients: clients}
}

// envelope carries the normalized inbound addresses through the chain.
type envelope struct {
	from     string
	to       string
	toDomain string
}

// resolverStep attempts one resolution strategy. A nil Resolution with a nil
// error means "no match, try the next step".
type resolverStep func(ctx context.Context, env envelope) (*Resolution, error)

// Resolve runs the strategy chain. It has no side effects; a miss is
// returned as a typed not-found error the caller acknowledges and drops.
func (r *Resolver) Resolve(ctx context.Context, from, to string) (Resolution, error) {
	env := envelope{
		from:     strings.ToLower(strings.TrimSpace(from)),
		to:       strings.ToLower(strings.TrimSpace(to)),
		toDomain: domainOf(to),
	}

	steps := []resolverStep{
		r.bySenderClient,
		r.byExactRecipient,
		r.byRecipientDomain,
		r.byStrippedRecipientDomain,
	}

	for _, step := range steps {
		res, err := step(ctx, env)
		if err != nil {
			return Resolution{}, err
		}
		if res != nil {
			return *res, nil
		}
	}

	return Resolution{}, apperr.Wrap(apperr.KindNotFound, "tenant.Resolve",
		fmt.Errorf("%w: from=%s to=%s", apperr.ErrTenantResolutionMiss, env.from, env.to))
}

// bySenderClient adopts the team of an existing client with the sender
// address.
func (r *Resolver) bySenderClient(ctx context.Context, env envelope) (*Resolution, error) {
	if env.from == "" {
		return nil, nil
	}
	teamID, found, err := r.clients.TeamBySenderEmail(ctx, env.from)
	if err != nil || !found {
		return nil, err
	}
	agent, err := r.agents.GetAgentByTeam(ctx, teamID)
	if errors.Is(err, ErrAgentNotFound) {
		// Known client but no agent configured; later steps cannot do better
		// for this team, so let the recipient heuristics try.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Resolution{TeamID: teamID, Agent: agent, KnownSender: true}, nil
}

// byExactRecipient matches the recipient against an agent's configured
// send-from address.
func (r *Resolver) byExactRecipient(ctx context.Context, env envelope) (*Resolution, error) {
	if env.to == "" {
		return nil, nil
	}
	agent, err := r.agents.GetAgentByFromEmail(ctx, env.to)
	if errors.Is(err, ErrAgentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Resolution{TeamID: agent.TeamID, Agent: agent}, nil
}

// byRecipientDomain matches the recipient domain against agent send-from
// domains.
func (r *Resolver) byRecipientDomain(ctx context.Context, env envelope) (*Resolution, error) {
	return r.byDomain(ctx, env.toDomain, env.toDomain)
}

// byStrippedRecipientDomain strips a literal "reply." prefix from the
// recipient domain and retries the domain match.
func (r *Resolver) byStrippedRecipientDomain(ctx context.Context, env envelope) (*Resolution, error) {
	if !strings.HasPrefix(env.toDomain, replySubdomainPrefix) {
		return nil, nil
	}
	stripped := strings.TrimPrefix(env.toDomain, replySubdomainPrefix)
	return r.byDomain(ctx, stripped, env.toDomain)
}

// byDomain resolves one candidate domain. When several agents share the
// domain, an agent whose send-from domain equals the unstripped recipient
// domain wins; otherwise the oldest agent does.
func (r *Resolver) byDomain(ctx context.Context, domain, unstripped string) (*Resolution, error) {
	if domain == "" {
		return nil, nil
	}
	agents, err := r.agents.ListAgentsByFromDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	if len(agents) == 0 {
		return nil, nil
	}

	chosen := agents[0]
	for _, a := range agents {
		if a.FromDomain() == unstripped {
			chosen = a
			break
		}
	}
	return &Resolution{TeamID: chosen.TeamID, Agent: chosen}, nil
}

func domainOf(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(addr[at+1:]))
}
