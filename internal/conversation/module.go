package conversation

import (
	"outreach_backend/internal/http"
)

// Module bundles the conversation pipeline behind the HTTP surface.
type Module struct {
	handler *Handler
}

// NewModule creates the conversation module.
func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

func (m *Module) Name() string { return "conversation" }

// RegisterRoutes mounts the inbound webhook and the manual send endpoint.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	rc.Webhooks.POST("/inbound", m.handler.Inbound)
	rc.V1.POST("/email/send", m.handler.Send)
}
