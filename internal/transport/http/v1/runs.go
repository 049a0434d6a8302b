package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tianyehedashu/ai-agent-sub002/internal/domain"
)

// CancelRun cancels the outstanding run, if any.
// POST /v1/runs/cancel
func (h *Handler) CancelRun(c echo.Context) error {
	h.service.CancelRequest()
	return c.JSON(http.StatusOK, h.service.State())
}

// GetRun returns the status of a run.
// GET /v1/runs/:run_id
func (h *Handler) GetRun(c echo.Context) error {
	runID := c.Param("run_id")

	info, ok := h.service.Run(runID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return c.JSON(http.StatusOK, info)
}

// GetRunTimeline returns the recorded events of a run.
// GET /v1/runs/:run_id/timeline?types=text,done
func (h *Handler) GetRunTimeline(c echo.Context) error {
	runID := c.Param("run_id")
	if _, ok := h.service.Run(runID); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	var types []domain.EventType
	if raw := c.QueryParam("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, domain.EventType(t))
			}
		}
	}

	ctx := c.Request().Context()

	events, err := h.service.Timeline(ctx, runID, types...)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, err)
	}
	if events == nil {
		events = []domain.ProcessEvent{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"events": events,
	})
}
