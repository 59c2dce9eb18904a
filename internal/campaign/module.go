package campaign

import (
	"outreach_backend/internal/http"
)

// Module bundles campaign kickoff behind the HTTP surface.
type Module struct {
	handler *Handler
}

// NewModule creates the campaign module.
func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

func (m *Module) Name() string { return "campaign" }

// RegisterRoutes mounts the kickoff endpoint.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	rc.V1.POST("/campaign/send", m.handler.Send)
}
