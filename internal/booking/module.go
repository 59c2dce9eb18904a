package booking

import (
	"outreach_backend/internal/http"
)

// Module bundles the booking webhook behind the HTTP surface.
type Module struct {
	handler *Handler
}

// NewModule creates the booking module.
func NewModule(handler *Handler) *Module {
	return &Module{handler: handler}
}

func (m *Module) Name() string { return "booking" }

// RegisterRoutes mounts the scheduler webhook.
func (m *Module) RegisterRoutes(rc *http.RouterContext) {
	rc.Webhooks.POST("/booking", m.handler.Webhook)
}
