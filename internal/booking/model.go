package booking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Booking is one appended scheduler webhook event.
type Booking struct {
	ID         uuid.UUID       `json:"id"`
	TeamID     uuid.UUID       `json:"teamId"`
	ClientID   uuid.UUID       `json:"clientId"`
	Status     string          `json:"status"`
	OccurredAt time.Time       `json:"occurredAt"`
	Source     string          `json:"source"`
	Raw        json.RawMessage `json:"raw,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
