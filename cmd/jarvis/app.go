package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tmc/langchaingo/llms/openai"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/critic"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/database"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/mission"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/observability"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/orchestrator"
	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/specialist"
)

// app bundles the wired runtime for one CLI invocation.
type app struct {
	db       *database.DB
	store    mission.Store
	events   mission.EventStore
	registry *specialist.Registry
	orch     *orchestrator.Orchestrator
	logger   *slog.Logger
	tracing  *sdktrace.TracerProvider
}

// buildApp opens storage, runs migrations, and wires the orchestration
// pipeline from the loaded configuration.
func buildApp() (*app, error) {
	logger := slog.Default()

	tracing, err := observability.InitTracing(context.Background(), cfg.Tracing, Version)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbCfg := database.DefaultConfig(cfg.Database.Path)
	if cfg.Database.BusyTimeout > 0 {
		dbCfg.BusyTimeout = cfg.Database.BusyTimeout
	}
	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := db.InitSchema(); err != nil {
		db.Close()
		return nil, err
	}

	registry := specialist.NewRegistry()
	if err := registerSpecialists(registry, logger); err != nil {
		db.Close()
		return nil, err
	}

	coordinator := specialist.NewCoordinator(registry,
		specialist.WithCoordinatorLogger(logger),
		specialist.WithAuctionTimeout(cfg.Auction.Timeout),
	)
	gate := critic.NewWhiteGate(
		critic.NewAdversarialCritic(),
		critic.NewRiskCritic(),
		critic.WithRiskThreshold(cfg.Gate.RiskThreshold),
		critic.WithGateLogger(logger),
	)

	store := mission.NewDBStore(db)
	events := mission.NewDBEventStore(db)

	orch := orchestrator.New(store, events, coordinator, gate,
		orchestrator.WithOrchestratorLogger(logger),
		orchestrator.WithOrchestratorTracer(tracing.Tracer("jarvis")),
		orchestrator.WithMaxRevisions(cfg.Gate.MaxRevisions),
		orchestrator.WithOrchestratorMaxParallel(cfg.Core.MaxParallel),
	)

	return &app{
		db:       db,
		store:    store,
		events:   events,
		registry: registry,
		orch:     orch,
		logger:   logger,
		tracing:  tracing,
	}, nil
}

// registerSpecialists wires the model-backed specialists. Two wildcard
// specialists with different temperaments make every auction a real contest;
// without an API key the process still starts, but runs fail with unbound
// capabilities unless specialists are registered another way.
func registerSpecialists(registry *specialist.Registry, logger *slog.Logger) error {
	if os.Getenv("OPENAI_API_KEY") == "" {
		logger.Warn("OPENAI_API_KEY not set, no model specialists registered")
		return nil
	}

	model, err := openai.New()
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}

	wildcard := []string{specialist.CapabilityAny}
	proposer := specialist.NewLLMSpecialist("proposer", model, wildcard,
		specialist.WithSystemPrompt("You are a thorough specialist. Produce the best complete artifact for the task."),
		specialist.WithConfidence(0.7),
	)
	skeptic := specialist.NewLLMSpecialist("skeptic", model, wildcard,
		specialist.WithSystemPrompt("You are a cautious specialist. Produce a conservative artifact and flag any assumption you had to make."),
		specialist.WithConfidence(0.5),
	)

	if err := registry.Register(proposer); err != nil {
		return err
	}
	return registry.Register(skeptic)
}

// Close releases the app's resources.
func (a *app) Close() error {
	if a.tracing != nil {
		if err := observability.Shutdown(context.Background(), a.tracing); err != nil {
			a.logger.Warn("tracing shutdown failed", "error", err)
		}
	}
	return a.db.Close()
}
