package campaign

import (
	"net/http"

	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Handler exposes the campaign kickoff endpoint.
type Handler struct {
	service *Service
	log     *logger.Logger
}

// NewHandler creates the campaign HTTP handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// KickoffRequest is the campaign kickoff payload.
type KickoffRequest struct {
	TeamID string `json:"teamId" binding:"required"`
}

// Send enqueues initial outreach for every NEW client of the team.
func (h *Handler) Send(c *gin.Context) {
	var req KickoffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}

	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid team id")
		return
	}

	queued, err := h.service.Kickoff(c.Request.Context(), teamID)
	if err != nil {
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, gin.H{"queued": queued})
}
