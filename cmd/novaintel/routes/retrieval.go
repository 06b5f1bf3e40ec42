package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/container"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/cmd/novaintel/handlers"
)

// RegisterRetrievalRoutes registers index builds and semantic queries.
func RegisterRetrievalRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRetrievalHandler(c.Indexer, c.Retriever, c.Documents, c.Components.Logger)

	e.POST("/api/v1/index/:rfpDocumentID/build", h.BuildIndex)
	e.POST("/api/v1/projects/:projectID/query", h.Query)
}
