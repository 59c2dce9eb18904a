package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the append-only booking log.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a booking repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append records one webhook event for a client.
func (r *Repository) Append(ctx context.Context, teamID, clientID uuid.UUID, status, source string, raw json.RawMessage) (Booking, error) {
	booking := Booking{
		ID:         uuid.New(),
		TeamID:     teamID,
		ClientID:   clientID,
		Status:     status,
		OccurredAt: time.Now().UTC(),
		Source:     source,
		Raw:        raw,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO bookings (id, team_id, client_id, status, occurred_at, source, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, booking.ID, booking.TeamID, booking.ClientID, booking.Status, booking.OccurredAt, booking.Source, booking.Raw).Scan(&booking.CreatedAt)
	if err != nil {
		return Booking{}, err
	}
	return booking, nil
}
