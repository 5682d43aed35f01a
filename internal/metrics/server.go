package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ScheduleFunc returns the document served at /schedule.
type ScheduleFunc func() any

// ServerConfig holds settings for the observe endpoint.
type ServerConfig struct {
	Listen   string
	Schedule ScheduleFunc
	Logger   *slog.Logger
}

// Server exposes /healthz, /metrics and /schedule over HTTP.
type Server struct {
	e      *echo.Echo
	addr   string
	logger *slog.Logger
}

// NewServer builds the observe server. It does not listen until Start.
func NewServer(config ServerConfig) *Server {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(Handler()))
	if config.Schedule != nil {
		e.GET("/schedule", func(c echo.Context) error {
			return c.JSON(http.StatusOK, config.Schedule())
		})
	}
	return &Server{e: e, addr: config.Listen, logger: config.Logger}
}

// Start serves in the background. Anything other than a clean shutdown
// is logged rather than returned; the daemon keeps running without the
// observe endpoint.
func (s *Server) Start() {
	s.logger.Info("observe endpoint listening", "addr", s.addr)
	go func() {
		if err := s.e.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("observe server failed", "addr", s.addr, "error", err)
		}
	}()
}

// Shutdown stops the server, waiting for in-flight requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}
