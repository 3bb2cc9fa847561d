// Package api wires the HTTP surface: the webhook ingestion routes and
// the WebSocket gateway upgrade, with an echo/v5 setup (body-limit
// middleware, route grouping, health check) and this package's own
// security-header middleware.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/apierr"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/gateway"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/ingest"
)

// maxWebhookBodyBytes bounds a single webhook delivery, set well above
// any single vendor payload while still rejecting a runaway body at
// the HTTP read level — a 2 MB server-wide limit.
const maxWebhookBodyBytes = 2 * 1024 * 1024

// Server is the HTTP API server: webhook ingestion plus the WebSocket
// gateway upgrade.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	pipeline   *ingest.Pipeline
	gateway    *gateway.Server
}

// NewServer builds a Server and registers its routes.
func NewServer(pipeline *ingest.Pipeline, gw *gateway.Server) *Server {
	e := echo.New()
	e.HTTPErrorHandler = apierr.HTTPErrorHandler

	s := &Server{echo: e, pipeline: pipeline, gateway: gw}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(maxWebhookBodyBytes))
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	// One route per alerting source; :user_id scopes the delivery to a
	// tenant, since unlike the gateway's WebSocket init frame a
	// third-party webhook carries no authenticated session to read a
	// user identity from. Each vendor's own webhook URL is treated as
	// the shared secret (the common real-world convention for
	// per-account webhook endpoints), so signature verification
	// particulars stay out of scope here exactly as spec.md §1 states.
	s.echo.POST("/webhooks/:source/:user_id", s.webhookHandler)

	s.echo.GET("/ws", s.wsHandler)
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo, ReadHeaderTimeout: 10 * time.Second}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// used by tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo, ReadHeaderTimeout: 10 * time.Second}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
