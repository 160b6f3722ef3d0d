// Package health serves the liveness endpoint used by hosting platforms to
// keep the bot process awake.
package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const shutdownTimeout = 5 * time.Second

// Body is the plain-text response of the root route.
const Body = "Discord bot ok"

// Pinger checks a dependency such as the ledger store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the JSON body of /healthz.
type Status struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Server is the liveness HTTP server.
type Server struct {
	echo   *echo.Echo
	addr   string
	pinger Pinger
	logger *slog.Logger
}

// New creates a server listening on addr. pinger may be nil.
func New(addr string, pinger Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		echo:   e,
		addr:   addr,
		pinger: pinger,
		logger: logger.With("component", "health"),
	}
	e.GET("/", s.root)
	e.GET("/healthz", s.healthz)
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) root(c echo.Context) error {
	return c.String(http.StatusOK, Body)
}

func (s *Server) healthz(c echo.Context) error {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request().Context()); err != nil {
			s.logger.Warn("Health check failed", "error", err)
			return c.JSON(http.StatusServiceUnavailable, Status{Status: "unavailable", Error: err.Error()})
		}
	}
	return c.JSON(http.StatusOK, Status{Status: "ok"})
}

// Start serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting health server", "addr", s.addr)
		errCh <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("health server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down health server: %w", err)
	}
	s.logger.Info("Health server stopped")
	return nil
}
