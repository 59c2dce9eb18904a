package campaign

import (
	"context"

	"outreach_backend/internal/conversation"
	"outreach_backend/platform/apperr"
	"outreach_backend/platform/logger"

	"github.com/google/uuid"
)

// ClientLister selects kickoff candidates.
type ClientLister interface {
	ListNewClients(ctx context.Context, teamID uuid.UUID, limit int) ([]conversation.Client, error)
}

// Service fans a campaign kickoff out into one queued task per NEW client.
// The worker handles composition and delivery, so a kickoff returns as soon
// as the batch is enqueued.
type Service struct {
	clients    ClientLister
	queue      Enqueuer
	log        *logger.Logger
	batchLimit int
}

// NewService creates the campaign kickoff service.
func NewService(clients ClientLister, queue Enqueuer, batchLimit int, log *logger.Logger) *Service {
	return &Service{clients: clients, queue: queue, batchLimit: batchLimit, log: log}
}

// Kickoff enqueues initial outreach for every NEW client of the team and
// returns how many tasks were queued.
func (s *Service) Kickoff(ctx context.Context, teamID uuid.UUID) (int, error) {
	candidates, err := s.clients.ListNewClients(ctx, teamID, s.batchLimit)
	if err != nil {
		return 0, apperr.StoreUnavailable("campaign.Kickoff", err)
	}

	queued := 0
	for _, client := range candidates {
		payload := InitialOutreachPayload{
			TeamID:   teamID.String(),
			ClientID: client.ID.String(),
		}
		if err := s.queue.EnqueueInitialOutreach(ctx, payload); err != nil {
			// Partial fan-out is fine; report what got through.
			s.log.Error("campaign enqueue failed", "client_id", client.ID.String(), "error", err.Error())
			continue
		}
		queued++
	}

	s.log.Info("campaign kickoff", "team_id", teamID.String(), "candidates", len(candidates), "queued", queued)
	return queued, nil
}
