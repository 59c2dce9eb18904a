// Package tenant provides the team/agent bounded context: tenant and agent
// configuration records and the resolver that maps inbound envelopes onto
// exactly one (team, agent) pair.
package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Team is the tenant boundary. It owns agents, clients, messages and
// bookings. Created at registration by an external collaborator; this core
// only reads it.
type Team struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
}

// Agent is a team's outbound persona and behavioral configuration. One
// active agent per team. Read-only from this core's perspective.
type Agent struct {
	ID                uuid.UUID
	TeamID            uuid.UUID
	Name              string
	FromEmail         string
	MeetingURL        string
	CompanyContext    string
	Rules             string
	Signature         string
	SignatureHTML     string
	SignatureImageURL string
	UseHTMLSignature  bool
	Model             string
	CreatedAt         time.Time
}

// FromDomain returns the lowercase domain of the agent's send-from address,
// or "" when the address has no domain part.
func (a Agent) FromDomain() string {
	return domainOf(a.FromEmail)
}
