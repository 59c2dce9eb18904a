package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAgentNotFound is returned when a team has no agent configured.
var ErrAgentNotFound = errors.New("agent not found")

const agentColumns = `
	id, team_id, name, from_email, meeting_url, company_context, rules,
	signature, signature_html, signature_image_url, use_html_signature,
	model, created_at`

// Repository provides read access to teams and agents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new tenant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetTeam returns a team by id.
func (r *Repository) GetTeam(ctx context.Context, id uuid.UUID) (Team, error) {
	var team Team
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM teams WHERE id = $1
	`, id).Scan(&team.ID, &team.Name, &team.CreatedAt)
	return team, err
}

// GetAgentByTeam returns the team's active agent: the oldest configured one.
func (r *Repository) GetAgentByTeam(ctx context.Context, teamID uuid.UUID) (Agent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE team_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, teamID)
	return scanAgent(row)
}

// GetAgentByFromEmail returns the agent configured with the exact send-from
// address, case-insensitively.
func (r *Repository) GetAgentByFromEmail(ctx context.Context, email string) (Agent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE lower(from_email) = lower($1)
		ORDER BY created_at ASC
		LIMIT 1
	`, email)
	return scanAgent(row)
}

// ListAgentsByFromDomain returns all agents whose send-from domain matches,
// in creation order. Used by the domain-match resolver steps.
func (r *Repository) ListAgentsByFromDomain(ctx context.Context, domain string) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE lower(split_part(from_email, '@', 2)) = lower($1)
		ORDER BY created_at ASC
	`, domain)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (Agent, error) {
	var agent Agent
	err := row.Scan(
		&agent.ID, &agent.TeamID, &agent.Name, &agent.FromEmail,
		&agent.MeetingURL, &agent.CompanyContext, &agent.Rules,
		&agent.Signature, &agent.SignatureHTML, &agent.SignatureImageURL,
		&agent.UseHTMLSignature, &agent.Model, &agent.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrAgentNotFound
	}
	return agent, err
}
