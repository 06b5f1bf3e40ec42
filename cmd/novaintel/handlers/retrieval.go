package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/repository"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/retrieval"
)

// RetrievalHandler exposes index builds and semantic queries.
type RetrievalHandler struct {
	indexer   *retrieval.Indexer
	retriever *retrieval.Retriever
	documents *repository.RFPDocumentRepository
	log       *logger.Logger
}

// NewRetrievalHandler creates a new retrieval handler.
func NewRetrievalHandler(indexer *retrieval.Indexer, retriever *retrieval.Retriever, documents *repository.RFPDocumentRepository, log *logger.Logger) *RetrievalHandler {
	return &RetrievalHandler{
		indexer:   indexer,
		retriever: retriever,
		documents: documents,
		log:       log,
	}
}

// BuildIndex chunks and embeds one RFP document into the vector store,
// replacing whatever was indexed for it before.
// POST /api/v1/index/:rfpDocumentID/build
func (h *RetrievalHandler) BuildIndex(c echo.Context) error {
	doc, err := h.documents.GetByID(c.Request().Context(), c.Param("rfpDocumentID"))
	if err != nil {
		return errorJSON(c, err)
	}

	n, err := h.indexer.BuildIndex(c.Request().Context(), doc.ProjectID, doc.ID, doc.ExtractedText)
	if err != nil {
		h.log.WithProject(doc.ProjectID).Error("index build failed", "rfp_document_id", doc.ID, "error", err)
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"rfp_document_id": doc.ID,
		"project_id":      doc.ProjectID,
		"chunks_indexed":  n,
	})
}

type queryRequest struct {
	Text string `json:"text"`
	TopK int    `json:"top_k,omitempty"`
}

// Query runs the retrieval pipeline within one project's chunks.
// POST /api/v1/projects/:projectID/query
func (h *RetrievalHandler) Query(c echo.Context) error {
	var req queryRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Text == "" {
		return badRequest(c, "text is required")
	}

	results, err := h.retriever.Retrieve(c.Request().Context(), c.Param("projectID"), req.Text, req.TopK)
	if err != nil {
		return errorJSON(c, err)
	}
	if results == nil {
		results = []retrieval.Result{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}
