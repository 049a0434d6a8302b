package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
	"github.com/tianyehedashu/ai-agent-sub002/internal/service"
)

// ResumeRequest is the body of POST /v1/interrupt/resume.
type ResumeRequest struct {
	Action       domain.ResumeAction `json:"action"`
	ModifiedArgs json.RawMessage     `json:"modified_args,omitempty"`
}

// ResumeInterrupt answers the pending interrupt.
// POST /v1/interrupt/resume
func (h *Handler) ResumeInterrupt(c echo.Context) error {
	var req ResumeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.service.ResumeExecution(req.Action, req.ModifiedArgs); err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResumeAction):
			return errorJSON(c, http.StatusBadRequest, err)
		case errors.Is(err, service.ErrNoPendingInterrupt),
			errors.Is(err, service.ErrNoSession),
			errors.Is(err, service.ErrResumeInFlight):
			return errorJSON(c, http.StatusConflict, err)
		}
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"status": "resuming",
		"action": req.Action,
	})
}

// DismissSessionRecreation acknowledges the session recreation notice.
// DELETE /v1/session/recreation
func (h *Handler) DismissSessionRecreation(c echo.Context) error {
	h.service.DismissSessionRecreation()
	return c.NoContent(http.StatusNoContent)
}
