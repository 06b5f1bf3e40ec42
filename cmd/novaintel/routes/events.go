package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/container"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/handlers"
)

// RegisterEventRoutes registers the WebSocket event stream.
func RegisterEventRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewEventsHandler(c.Hub)

	e.GET("/api/v1/events/ws", h.Subscribe)
}
