// Package conversation provides the inbound conversation-processing bounded
// context: client and message records, the per-client status machine, and
// the webhook pipeline that turns inbound email into automated replies.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Direction marks which way a message traveled.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Client is a prospect tracked per team. (team_id, email) is unique.
type Client struct {
	ID                    uuid.UUID
	TeamID                uuid.UUID
	Name                  string
	Email                 string
	Status                Status
	LastMessageAt         *time.Time
	ThreadSubject         string
	LastOutboundMessageID string
	Meta                  map[string]any
	// Version guards read-modify-write sequences against concurrent webhook
	// deliveries for the same client.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is an immutable append-only log entry scoped to (team, client).
type Message struct {
	ID       uuid.UUID
	TeamID   uuid.UUID
	ClientID uuid.UUID

	Direction Direction
	From      string
	To        string
	Subject   string
	Text      string
	HTML      string

	// WireMessageID is the RFC 5322 Message-ID used for threading.
	WireMessageID string
	InReplyTo     string
	RawHeaders    map[string]string
	ProviderID    string

	CreatedAt time.Time
}

// HistoryEntry is one role-tagged turn of the bounded conversation window
// handed to the AI completion boundary.
type HistoryEntry struct {
	Role    string // "assistant" for outbound, "user" for inbound
	Content string
}

// HistoryRole maps a message direction onto a completion role.
func HistoryRole(d Direction) string {
	if d == DirectionOutbound {
		return "assistant"
	}
	return "user"
}
