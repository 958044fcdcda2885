package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"policy-onboarding/internal/config"
	"policy-onboarding/internal/handler"
	"policy-onboarding/internal/log"
	"policy-onboarding/internal/notify"
	"policy-onboarding/internal/orchestrator"
	"policy-onboarding/internal/refdata"
	"policy-onboarding/internal/rules"
	"policy-onboarding/internal/transport"
	"policy-onboarding/internal/wizard"
)

const (
	serviceName = "policy-onboarding"
	version     = "0.1.0"

	refDataTimeout  = 15 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	// a missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	logger := log.New(serviceName, cfg.Env, version, cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("Policy onboarding starting",
		slog.Int("port", cfg.Port),
		slog.String("backend_url", cfg.BackendURL),
		slog.String("flow", string(cfg.Flow)),
		slog.String("refdata_source", cfg.RefDataSource))

	backend := transport.NewHTTP(cfg.BackendURL, cfg.BackendTimeout, logger)
	repo := loadRefData(cfg, backend, logger)
	orch := orchestrator.New(backend, cfg.DependentConcurrency, logger)
	notifier := notify.NewLog(logger)
	validator := rules.NewValidator()

	srv := handler.New(func() (*wizard.Machine, error) {
		return wizard.New(wizard.Options{
			Flow:      cfg.Flow,
			Limits:    cfg.Limits,
			Validator: validator,
			RefData:   repo,
			Creator:   orch,
			Notifier:  notifier,
			Logger:    logger,
		})
	}, repo, logger)

	server := &fasthttp.Server{
		Name:         serviceName,
		Handler:      srv.Handle,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * cfg.BackendTimeout,
	}

	go func() {
		addr := ":" + strconv.Itoa(cfg.Port)
		if err := server.ListenAndServe(addr); err != nil {
			logger.Error("Server failed", log.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(ctx); err != nil {
		logger.Error("Shutdown failed", log.Error(err))
	}
	logger.Info("Policy onboarding stopped")
}

// loadRefData fetches the reference lists once. A backend that cannot
// serve them leaves the built-in catalog in place.
func loadRefData(
	cfg *config.Config, t transport.Transport, logger *slog.Logger,
) refdata.Repository {
	if cfg.RefDataSource != config.RefDataBackend {
		return refdata.Default()
	}

	ctx, cancel := context.WithTimeout(context.Background(), refDataTimeout)
	defer cancel()
	catalog, err := refdata.Fetch(ctx, t)
	if err != nil {
		logger.Warn("Reference data unavailable, using built-in catalog",
			log.Error(err))
		return refdata.Default()
	}
	logger.Info("Reference data loaded",
		slog.Int("policy_types", len(catalog.PolicyTypes())),
		slog.Int("agents", len(catalog.Agents())))
	return catalog
}
