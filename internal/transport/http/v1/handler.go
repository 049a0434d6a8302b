// Package v1 provides the UI bridge HTTP handlers.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tianyehedashu/ai-agent-sub002/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers the UI bridge routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation
	e.GET("/v1/state", h.GetState)
	e.POST("/v1/messages", h.SendMessage)
	e.PUT("/v1/messages", h.LoadMessages)
	e.DELETE("/v1/messages", h.ClearMessages)

	// Runs
	e.POST("/v1/runs/cancel", h.CancelRun)
	e.GET("/v1/runs/:run_id", h.GetRun)
	e.GET("/v1/runs/:run_id/timeline", h.GetRunTimeline)

	// Interrupts and session notices
	e.POST("/v1/interrupt/resume", h.ResumeInterrupt)
	e.DELETE("/v1/session/recreation", h.DismissSessionRecreation)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

func errorJSON(c echo.Context, code int, err error) error {
	return c.JSON(code, map[string]string{"error": err.Error()})
}
