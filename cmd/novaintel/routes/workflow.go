package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/container"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/handlers"
)

// RegisterWorkflowRoutes registers the run lifecycle routes.
func RegisterWorkflowRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewWorkflowHandler(c.Manager, c.Components.Logger)

	wf := e.Group("/api/v1/workflows")
	{
		wf.POST("/run", h.RunWorkflow)                      // POST /api/v1/workflows/run
		wf.GET("/state/:id", h.GetState)                    // GET  /api/v1/workflows/state/:id
		wf.POST("/state/:id/approve-outline", h.ApproveOutline) // POST /api/v1/workflows/state/:id/approve-outline
		wf.POST("/state/:id/cancel", h.Cancel)              // POST /api/v1/workflows/state/:id/cancel
	}

	e.GET("/api/v1/projects/:projectID/workflow/status", h.Status)
}
