package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/container"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/handlers"
)

// RegisterChatRoutes registers the grounded RFP question endpoint.
func RegisterChatRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewChatHandler(c.Chat, c.Components.Logger)

	e.POST("/api/v1/projects/:projectID/chat", h.Ask)
}
