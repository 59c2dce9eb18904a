package conversation

import (
	"context"

	"outreach_backend/internal/outbound"

	"github.com/google/uuid"
)

// RecordOutbound implements outbound.Store: the message append and the
// client update commit together or not at all.
func (r *Repository) RecordOutbound(ctx context.Context, rec outbound.OutboundRecord) (uuid.UUID, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer tx.Rollback(ctx)

	var msgID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO messages (
			team_id, client_id, direction, from_addr, to_addr, subject,
			body_text, body_html, message_id, in_reply_to, raw_headers, provider_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, '{}'::jsonb, $11)
		RETURNING id
	`,
		rec.TeamID, rec.ClientID, DirectionOutbound, rec.From, rec.To, rec.Subject,
		rec.Text, rec.HTML, rec.WireMessageID, rec.InReplyTo, rec.ProviderID,
	).Scan(&msgID)
	if err != nil {
		return uuid.Nil, err
	}

	if rec.MarkContacted {
		_, err = tx.Exec(ctx, `
			UPDATE clients
			SET status = $1, last_message_at = now(), last_outbound_message_id = $2,
			    thread_subject = $3, updated_at = now(), version = version + 1
			WHERE id = $4
		`, StatusContacted, rec.WireMessageID, rec.Subject, rec.ClientID)
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE clients
			SET last_message_at = now(), last_outbound_message_id = $1,
			    thread_subject = $2, updated_at = now(), version = version + 1
			WHERE id = $3
		`, rec.WireMessageID, rec.Subject, rec.ClientID)
	}
	if err != nil {
		return uuid.Nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, err
	}
	return msgID, nil
}
