// Package api exposes the mission runner over HTTP: mission submission,
// progress and event inspection, and the human approval endpoints.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/config"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/orchestrator"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/types"
)

// HealthChecker reports readiness of a dependency, keyed by name.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Server exposes the orchestrator over HTTP.
type Server struct {
	echo   *echo.Echo
	orch   *orchestrator.Orchestrator
	logger *slog.Logger
	cfg    config.ServerConfig
	health map[string]HealthChecker

	mu     sync.Mutex
	active map[types.ID]struct{}
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(orch *orchestrator.Orchestrator, cfg config.ServerConfig, logger *slog.Logger, health map[string]HealthChecker) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("orchestrator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	if cfg.ReadTimeout > 0 {
		e.Server.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		e.Server.WriteTimeout = cfg.WriteTimeout
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				"method", c.Request().Method,
				"uri", c.Request().RequestURI,
				"status", c.Response().Status,
				"duration", time.Since(start),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)
			return err
		}
	})

	s := &Server{
		echo:   e,
		orch:   orch,
		logger: logger,
		cfg:    cfg,
		health: health,
		active: make(map[types.ID]struct{}),
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/missions", s.handleSubmitMission)
	v1.GET("/missions", s.handleListMissions)
	v1.GET("/missions/:id", s.handleGetMission)
	v1.GET("/missions/:id/events", s.handleMissionEvents)
	v1.POST("/missions/:id/resume", s.handleResumeMission)
	v1.GET("/approvals", s.handleListApprovals)
	v1.POST("/approvals/:id", s.handleResolveApproval)
}

// markActive reserves the run ID, rejecting concurrent runs of one mission.
func (s *Server) markActive(runID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.active[runID]; running {
		return types.NewError(types.RUN_ALREADY_ACTIVE,
			fmt.Sprintf("run %s is already executing", runID))
	}
	s.active[runID] = struct{}{}
	return nil
}

func (s *Server) markDone(runID types.ID) {
	s.mu.Lock()
	delete(s.active, runID)
	s.mu.Unlock()
}

// Start starts the HTTP listener and blocks until shutdown.
func (s *Server) Start() error {
	addr := s.cfg.Address()
	s.logger.Info("starting http server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

// Handler exposes the echo engine, used by tests.
func (s *Server) Handler() http.Handler { return s.echo }
