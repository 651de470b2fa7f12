// Command server starts the Softrate ATS HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpserver "github.com/fairyhunter13/softrate-ats/internal/adapter/httpserver"
	"github.com/fairyhunter13/softrate-ats/internal/adapter/observability"
	"github.com/fairyhunter13/softrate-ats/internal/app"
	"github.com/fairyhunter13/softrate-ats/internal/config"
	"github.com/fairyhunter13/softrate-ats/internal/seed"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx := context.Background()
	deps, err := buildDeps(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer deps.Close()

	pipeline := usecase.NewPipelineService(deps.Store, deps.Locker, deps.Screener, deps.Oracle, deps.Events, scoringPolicy(cfg))
	assessments := usecase.NewAssessmentService(deps.Store, deps.Generator)
	if _, err := seed.Run(ctx, assessments, cfg.SeedFile); err != nil {
		slog.Error("seeding assessments failed", slog.Any("error", err))
		os.Exit(1)
	}
	psych, err := seed.Psychometric()
	if err != nil {
		slog.Error("loading psychometric bank failed", slog.Any("error", err))
		os.Exit(1)
	}

	srv := httpserver.NewServer(cfg,
		usecase.NewAccountService(deps.Store, deps.Hasher),
		assessments,
		pipeline,
		usecase.NewQuestionService(pipeline, deps.Generator, psych),
		usecase.NewAdminService(deps.Store),
		deps.Extractor,
		app.BuildReadinessChecks(deps.Readiness)...,
	)
	if !cfg.AdminEnabled() {
		slog.Warn("admin credentials not configured, admin endpoints will refuse every login")
	}

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.BuildRouter(cfg, srv),
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting",
			slog.Int("port", cfg.Port),
			slog.String("store", cfg.Store),
			slog.String("llm_provider", cfg.LLMProvider),
			slog.String("extractor", cfg.Extractor))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
}

func scoringPolicy(cfg config.Config) usecase.ScoringPolicy {
	p := usecase.DefaultScoringPolicy()
	p.QualifyThreshold = cfg.QualifyThreshold
	p.OracleFallbackScore = cfg.OracleFallbackScore
	if d := cfg.OracleTimeout(); d > 0 {
		p.OracleTimeout = d
	}
	return p
}
