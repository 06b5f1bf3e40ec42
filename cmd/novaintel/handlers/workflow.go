package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// WorkflowHandler exposes the run lifecycle: start, inspect, approve, cancel.
type WorkflowHandler struct {
	manager *workflow.Manager
	log     *logger.Logger
}

// NewWorkflowHandler creates a new workflow handler.
func NewWorkflowHandler(manager *workflow.Manager, log *logger.Logger) *WorkflowHandler {
	return &WorkflowHandler{manager: manager, log: log}
}

type runRequest struct {
	ProjectID     string          `json:"project_id"`
	RFPDocumentID string          `json:"rfp_document_id"`
	SelectedTasks map[string]bool `json:"selected_tasks,omitempty"`
	UserID        string          `json:"user_id,omitempty"`
}

// RunWorkflow starts a proposal run and blocks until it finishes or parks
// at the approval gate.
// POST /api/v1/workflows/run
func (h *WorkflowHandler) RunWorkflow(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ProjectID == "" || req.RFPDocumentID == "" {
		return badRequest(c, "project_id and rfp_document_id are required")
	}

	summary, err := h.manager.StartRun(c.Request().Context(), req.ProjectID, req.RFPDocumentID, req.SelectedTasks, req.UserID)
	if err != nil {
		h.log.WithProject(req.ProjectID).Error("run request failed", "error", err)
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, summary)
}

// GetState returns the full state record of a run.
// GET /api/v1/workflows/state/:id
func (h *WorkflowHandler) GetState(c echo.Context) error {
	st, err := h.manager.GetState(c.Param("id"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Status reports the coarse per-project view used by dashboards.
// GET /api/v1/projects/:projectID/workflow/status
func (h *WorkflowHandler) Status(c echo.Context) error {
	status, err := h.manager.StatusByProject(c.Request().Context(), c.Param("projectID"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

type approvalRequest struct {
	Approved *bool  `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// ApproveOutline records a human decision on the proposal outline. An
// approval resumes a parked run in the background.
// POST /api/v1/workflows/state/:id/approve-outline
func (h *WorkflowHandler) ApproveOutline(c echo.Context) error {
	var req approvalRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Approved == nil {
		return badRequest(c, "approved is required")
	}

	st, err := h.manager.ApproveOutline(c.Request().Context(), c.Param("id"), *req.Approved, req.Feedback)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"approved":  *st.OutlineApproved,
		"timestamp": st.OutlineApprovedAt,
	})
}

// Cancel stops an in-flight or parked run.
// POST /api/v1/workflows/state/:id/cancel
func (h *WorkflowHandler) Cancel(c echo.Context) error {
	stateID := c.Param("id")
	if err := h.manager.CancelRun(stateID); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"state_id": stateID, "status": "cancelling"})
}
