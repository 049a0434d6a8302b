package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
	"github.com/tianyehedashu/ai-agent-sub002/internal/service"
)

// SendMessageRequest is the body of POST /v1/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// LoadMessagesRequest is the body of PUT /v1/messages.
type LoadMessagesRequest struct {
	Messages []domain.Message `json:"messages"`
}

// GetState returns the conversation snapshot.
// GET /v1/state
func (h *Handler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.service.State())
}

// SendMessage starts a run for a user message.
// POST /v1/messages
func (h *Handler) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	runID, err := h.service.SendMessage(req.Content)
	if err != nil {
		if errors.Is(err, service.ErrEmptyMessage) {
			return errorJSON(c, http.StatusBadRequest, err)
		}
		return errorJSON(c, http.StatusInternalServerError, err)
	}

	return c.JSON(http.StatusAccepted, map[string]string{
		"run_id": runID,
	})
}

// LoadMessages replaces the conversation history.
// PUT /v1/messages
func (h *Handler) LoadMessages(c echo.Context) error {
	var req LoadMessagesRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	h.service.LoadMessages(req.Messages)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": h.service.Messages(),
	})
}

// ClearMessages empties the conversation.
// DELETE /v1/messages
func (h *Handler) ClearMessages(c echo.Context) error {
	h.service.ClearMessages()
	return c.NoContent(http.StatusNoContent)
}
