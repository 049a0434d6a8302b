// Package http provides the UI bridge: an HTTP API over the client engine for
// a local user interface.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tianyehedashu/ai-agent-sub002/internal/service"
	v1 "github.com/tianyehedashu/ai-agent-sub002/internal/transport/http/v1"
)

// NewServer creates and configures the UI bridge server.
func NewServer(svc *service.Service) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register Routes
	v1.NewHandler(svc).RegisterRoutes(e)

	return e
}
