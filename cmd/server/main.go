package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcript-polisher/internal/config"
	"transcript-polisher/internal/infra/llm"
	"transcript-polisher/internal/observability/logging"
	"transcript-polisher/internal/observability/tracing"
	"transcript-polisher/internal/usecase/generate"
	"transcript-polisher/internal/usecase/polish"

	hhttp "transcript-polisher/internal/handler/http"
	hpolish "transcript-polisher/internal/handler/http/polish"
	"transcript-polisher/internal/handler/http/requestid"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	serverCfg := loadServerConfig(logger)
	genCfg := loadGenerationConfig(logger)

	shutdownTracing := func(context.Context) error { return nil }
	if serverCfg.TracingEnabled {
		shutdownTracing = tracing.Init(logger)
		logger.Info("tracing enabled")
	}

	version := getVersion()
	handler := setupServer(logger, serverCfg, genCfg, version)

	runServer(logger, serverCfg, handler, version)

	if err := shutdownTracing(context.Background()); err != nil {
		logger.Error("tracing shutdown failed", slog.Any("error", err))
	}
}

// loadServerConfig loads listener settings. Invalid values fall back to
// defaults with a warning rather than stopping the server.
func loadServerConfig(logger *slog.Logger) *config.ServerConfig {
	cfg, warnings := config.LoadServerConfig()
	for _, w := range warnings {
		logger.Warn("server configuration fallback", slog.String("warning", w))
	}
	return cfg
}

// loadGenerationConfig loads backend settings. Unlike the server settings,
// a broken generation config is fatal.
func loadGenerationConfig(logger *slog.Logger) *config.GenerationConfig {
	cfg, err := config.LoadGenerationConfig()
	if err != nil {
		logger.Error("failed to load generation configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("generation configuration loaded",
		slog.Any("priority", cfg.Priority),
		slog.Int("local_endpoints", len(cfg.Local.EndpointURLs)),
		slog.Any("local_models", cfg.Local.Models),
		slog.Bool("hosted_enabled", cfg.Hosted.Enabled),
		slog.Duration("cooldown", cfg.CooldownDuration()),
		slog.Int("retries_per_target", cfg.RetriesPerTarget),
		slog.Duration("attempt_timeout", cfg.Timeout()))

	if len(cfg.Local.EndpointURLs) == 0 && !cfg.Hosted.Enabled {
		logger.Warn("no generation backends configured; generation requests will fail")
	}
	return cfg
}

// getVersion returns the application version from environment or default.
func getVersion() string {
	version := os.Getenv("VERSION")
	if version == "" {
		version = "dev"
	}
	return version
}

// setupServer builds the generation stack and returns the HTTP handler with
// all routes and middleware.
func setupServer(logger *slog.Logger, serverCfg *config.ServerConfig, genCfg *config.GenerationConfig, version string) http.Handler {
	client := llm.NewClient(genCfg)
	registry := generate.NewRegistry(genCfg)
	cooldowns := generate.NewCooldownTracker()
	orchestrator := generate.NewOrchestrator(genCfg, registry, client, cooldowns)

	templates, err := polish.LoadTemplates(genCfg.TemplatesPath)
	if err != nil {
		logger.Error("failed to load prompt templates",
			slog.String("path", genCfg.TemplatesPath),
			slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("prompt templates loaded", slog.Any("templates", templates.Names()))

	svc := polish.NewService(orchestrator, templates, genCfg.Chunking)
	reporter := generate.NewStatusReporter(registry, client, cooldowns)

	mux := http.NewServeMux()
	mux.Handle("GET /health", &hhttp.HealthHandler{Version: version})
	mux.Handle("GET /health/backends", &hhttp.BackendsHandler{Source: reporter})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())
	hpolish.Register(mux, svc, templates)

	return applyMiddleware(logger, mux, serverCfg)
}

// applyMiddleware wraps the handler with the middleware chain.
// Order: Request ID → Logging → Recovery → Tracing → Metrics → Body Limit
func applyMiddleware(logger *slog.Logger, handler http.Handler, cfg *config.ServerConfig) http.Handler {
	return hhttp.Chain(handler,
		requestid.Middleware,
		hhttp.Logging(logger),
		hhttp.Recover(logger),
		tracing.Middleware,
		hhttp.MetricsMiddleware,
		hhttp.LimitRequestBody(int64(cfg.MaxBodyBytes)),
	)
}

// runServer starts the HTTP server and handles graceful shutdown.
func runServer(logger *slog.Logger, cfg *config.ServerConfig, handler http.Handler, version string) {
	// Create a context for in-flight generations
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout, // Prevent Slowloris attacks
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.ListenAddr),
			slog.String("version", version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...", slog.Duration("timeout", cfg.ShutdownTimeout))

	// Generations can run for minutes; give them the shutdown window first.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	start := time.Now()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
		// Abort what is still running
		cancel()
	}
	logger.Info("server stopped", slog.Duration("drain", time.Since(start)))
}
