package handlers

import (
	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/events"
)

// EventsHandler upgrades subscribers onto the project event stream.
type EventsHandler struct {
	hub *events.Hub
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(hub *events.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Subscribe upgrades the connection to a WebSocket scoped to one project.
// GET /api/v1/events/ws?project_id=...
func (h *EventsHandler) Subscribe(c echo.Context) error {
	projectID := c.QueryParam("project_id")
	if projectID == "" {
		return badRequest(c, "project_id is required")
	}
	return h.hub.HandleWS(c.Response(), c.Request(), projectID)
}
