package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/chat"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/logger"
)

// ChatHandler answers grounded questions about an indexed RFP.
type ChatHandler struct {
	chat *chat.Service
	log  *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(svc *chat.Service, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chat: svc, log: log}
}

type chatRequest struct {
	Text    string      `json:"text"`
	History []chat.Turn `json:"history,omitempty"`
	TopK    int         `json:"top_k,omitempty"`
}

// Ask answers one question using only retrieved RFP context.
// POST /api/v1/projects/:projectID/chat
func (h *ChatHandler) Ask(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Text == "" {
		return badRequest(c, "text is required")
	}

	resp, err := h.chat.Ask(c.Request().Context(), c.Param("projectID"), req.Text, req.History, req.TopK)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}
