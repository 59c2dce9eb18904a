package booking

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"outreach_backend/platform/apperr"
	"outreach_backend/platform/httpkit"
	"outreach_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Handler exposes the scheduler webhook.
type Handler struct {
	service *Service
	log     *logger.Logger
}

// NewHandler creates the booking HTTP handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, log: log}
}

// Webhook accepts booking lifecycle events. The raw body is kept verbatim
// for the audit trail, so it is read before decoding.
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "unreadable body")
		return
	}

	var hook Webhook
	if err := json.Unmarshal(body, &hook); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook payload")
		return
	}

	if err := h.service.Apply(c.Request.Context(), hook, body); err != nil {
		if errors.Is(err, apperr.ErrNoEmailInPayload) {
			httpkit.Error(c, http.StatusBadRequest, "no email in webhook")
			return
		}
		httpkit.HandleError(c, err)
		return
	}
	c.String(http.StatusOK, "ok")
}
