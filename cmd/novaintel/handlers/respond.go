package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/indrajit-intglobal/novaintel-latest-sub000/common/repository"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/llm"
	"github.com/indrajit-intglobal/novaintel-latest-sub000/workflow"
)

// statusFor maps domain failures onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrBusy), errors.Is(err, workflow.ErrFinished):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrNoExtractedText):
		return http.StatusBadRequest
	case llm.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorJSON writes the standard error body.
func errorJSON(c echo.Context, err error) error {
	return c.JSON(statusFor(err), map[string]any{"error": err.Error()})
}

// badRequest writes a 400 with a fixed message.
func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]any{"error": msg})
}
