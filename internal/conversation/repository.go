package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrClientNotFound is returned when no client matches the lookup.
	ErrClientNotFound = errors.New("client not found")
	// ErrVersionConflict is returned when a conditional update lost the race
	// against a concurrent writer; the caller re-reads and retries.
	ErrVersionConflict = errors.New("client version conflict")
)

const clientColumns = `
	id, team_id, name, email, status, last_message_at, thread_subject,
	last_outbound_message_id, meta, version, created_at, updated_at`

// Repository provides data access for clients and messages.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new conversation repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TeamBySenderEmail implements the tenant resolver's fast path: the team of
// an existing client with the given address. The oldest record wins when
// two teams track the same prospect.
func (r *Repository) TeamBySenderEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	var teamID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT team_id FROM clients
		WHERE lower(email) = lower($1)
		ORDER BY created_at ASC
		LIMIT 1
	`, email).Scan(&teamID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return teamID, true, nil
}

// GetByEmail returns the client for (team, email).
func (r *Repository) GetByEmail(ctx context.Context, teamID uuid.UUID, email string) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE team_id = $1 AND lower(email) = lower($2)
	`, teamID, email)
	return scanClient(row)
}

// GetByEmailAnyTeam returns the oldest client with the given address across
// all teams. Used by the booking path when no team context is derivable
// from the payload.
func (r *Repository) GetByEmailAnyTeam(ctx context.Context, email string) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE lower(email) = lower($1)
		ORDER BY created_at ASC
		LIMIT 1
	`, email)
	return scanClient(row)
}

// GetByID returns a client by id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE id = $1
	`, id)
	return scanClient(row)
}

// Create inserts a new client with status NEW.
func (r *Repository) Create(ctx context.Context, teamID uuid.UUID, name, email string) (Client, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO clients (team_id, name, email, status)
		VALUES ($1, $2, lower($3), $4)
		RETURNING `+clientColumns+`
	`, teamID, name, email, StatusNew)
	return scanClient(row)
}

// ListNewClients returns up to limit clients with status NEW for a team.
func (r *Repository) ListNewClients(ctx context.Context, teamID uuid.UUID, limit int) ([]Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE team_id = $1 AND status = $2
		ORDER BY created_at ASC
		LIMIT $3
	`, teamID, StatusNew, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

// ApplyInboundTransition advances the client's status and last_message_at.
// The update is conditional on the version the caller read; a conflict means
// a concurrent delivery mutated the client first.
func (r *Repository) ApplyInboundTransition(ctx context.Context, clientID uuid.UUID, version int64, status Status) (int64, error) {
	var newVersion int64
	err := r.pool.QueryRow(ctx, `
		UPDATE clients
		SET status = $1, last_message_at = now(), updated_at = now(), version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`, status, clientID, version).Scan(&newVersion)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrVersionConflict
	}
	return newVersion, err
}

// ApplyBookingOverride sets the authoritative booking status and merges the
// webhook metadata into the client's meta map. Booking intent always wins,
// so this update is unconditional.
func (r *Repository) ApplyBookingOverride(ctx context.Context, clientID uuid.UUID, status Status, metaField, trigger string, raw json.RawMessage) error {
	meta := map[string]any{
		metaField:            time.Now().UTC().Format(time.RFC3339),
		"lastWebhookEvent":   trigger,
		"lastWebhookPayload": json.RawMessage(raw),
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE clients
		SET status = $1, meta = meta || $2::jsonb, updated_at = now(), version = version + 1
		WHERE id = $3
	`, status, metaJSON, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

// InsertMessage appends a message to the log. Messages are never updated or
// deleted once created.
func (r *Repository) InsertMessage(ctx context.Context, msg Message) (Message, error) {
	headers, err := json.Marshal(msg.RawHeaders)
	if err != nil {
		return Message{}, err
	}
	err = r.pool.QueryRow(ctx, `
		INSERT INTO messages (
			team_id, client_id, direction, from_addr, to_addr, subject,
			body_text, body_html, message_id, in_reply_to, raw_headers, provider_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at
	`,
		msg.TeamID, msg.ClientID, msg.Direction, msg.From, msg.To, msg.Subject,
		msg.Text, msg.HTML, msg.WireMessageID, msg.InReplyTo, headers, msg.ProviderID,
	).Scan(&msg.ID, &msg.CreatedAt)
	return msg, err
}

// HasInboundWireID reports whether an inbound message with this wire
// Message-ID was already recorded, for redelivery dedup.
func (r *Repository) HasInboundWireID(ctx context.Context, wireID string) (bool, error) {
	if wireID == "" {
		return false, nil
	}
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE direction = $1 AND message_id = $2
		)
	`, DirectionInbound, wireID).Scan(&exists)
	return exists, err
}

// History returns the most recent limit messages for a client as role-tagged
// entries in creation order, oldest first. Duplicate wire ids are dropped so
// redelivered inbound mail never repeats in the prompt window.
func (r *Repository) History(ctx context.Context, clientID uuid.UUID, limit int) ([]HistoryEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT direction, body_text, message_id FROM (
			SELECT direction, body_text, message_id, created_at, id
			FROM messages
			WHERE client_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) window
		ORDER BY created_at ASC, id ASC
	`, clientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var history []HistoryEntry
	for rows.Next() {
		var direction Direction
		var text, wireID string
		if err := rows.Scan(&direction, &text, &wireID); err != nil {
			return nil, err
		}
		if wireID != "" {
			if seen[wireID] {
				continue
			}
			seen[wireID] = true
		}
		history = append(history, HistoryEntry{Role: HistoryRole(direction), Content: text})
	}
	return history, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (Client, error) {
	var client Client
	var meta []byte
	err := row.Scan(
		&client.ID, &client.TeamID, &client.Name, &client.Email, &client.Status,
		&client.LastMessageAt, &client.ThreadSubject, &client.LastOutboundMessageID,
		&meta, &client.Version, &client.CreatedAt, &client.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrClientNotFound
	}
	if err != nil {
		return Client{}, err
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &client.Meta); err != nil {
			return Client{}, err
		}
	}
	return client, nil
}
