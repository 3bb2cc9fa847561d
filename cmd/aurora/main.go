// Command aurora starts the TARSy-AURORA server: webhook ingestion,
// the agentic RCA runner, and the live WebSocket gateway, grounded on
// cmd/tarsy/main.go startup sequence (flag/env config
// dir, godotenv, ordered service construction, graceful shutdown).
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codeready-toolchain/tarsy-aurora/pkg/agentloop"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/api"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/confirm"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/config"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/dbx"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/gateway"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/ingest"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/modelregistry"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/queue"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/rcarunner"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/runbook"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/secrets"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/slack"
	"github.com/codeready-toolchain/tarsy-aurora/pkg/toolcatalog"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// defaultCanonicalModel builds the "<provider>/<model>" canonical name
// modelregistry.Registry.Select expects, from the configured default
// provider's own DefaultModel, used to seed a background investigation
// that (unlike a user query) names no model of its own.
func defaultCanonicalModel(cfg *config.Config) string {
	name := cfg.Defaults.LLMProvider
	if name == "" {
		return ""
	}
	provider, err := cfg.LLMProviderRegistry.Get(name)
	if err != nil || provider.DefaultModel == "" {
		return ""
	}
	return name + "/" + provider.DefaultModel
}

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.With("component", "main")

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		log.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	log.Info("configuration loaded", "tool_domains", stats.ToolDomains, "llm_providers", stats.LLMProviders)

	dbCfg, err := dbx.LoadConfigFromEnv()
	if err != nil {
		log.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	if err := dbx.Migrate(dbCfg); err != nil {
		log.Error("failed to run database migrations", "error", err)
		os.Exit(1)
	}
	pools, err := dbx.Open(ctx, dbCfg)
	if err != nil {
		log.Error("failed to open database pools", "error", err)
		os.Exit(1)
	}
	defer pools.Close()
	log.Info("connected to postgres")

	registry := modelregistry.New(cfg.LLMProviderRegistry)
	catalog := toolcatalog.BuildDefault(cfg.ToolDomainRegistry)
	confirmBroker := confirm.New()

	hub := gateway.NewHub()
	gw := &gateway.Server{
		Hub:     hub,
		Catalog: catalog,
		Context: &gateway.DBContextLoader{Pools: pools},
		Limiter: gateway.DefaultRateLimiter(),
	}

	engine := &agentloop.Engine{
		Registry:  registry,
		Catalog:   catalog,
		Confirm:   confirmBroker,
		Publisher: gw,
		Persist:   &gateway.DBPersistence{Pools: pools},
	}
	gw.Engine = engine
	gw.Confirm = confirmBroker

	listener := gateway.NewNotifyListener(dbCfg.DSN(), hub)
	if err := listener.Start(ctx); err != nil {
		log.Error("failed to start notify listener", "error", err)
		os.Exit(1)
	}
	defer listener.Stop()
	gw.Listener = listener

	secretsClient := secrets.NewClient(&secrets.PostgresStore{Pools: pools}, time.Duration(cfg.Secrets.CacheTTLSeconds)*time.Second)
	_ = secretsClient // wired for per-user BYO credential lookups from tool executors

	var slackSvc *slack.Service
	if cfg.Slack.Enabled {
		slackSvc = slack.NewService(slack.ServiceConfig{
			Token:        os.Getenv(cfg.Slack.TokenEnv),
			Channel:      cfg.Slack.Channel,
			DashboardURL: cfg.Slack.DashboardURL,
		}, pools)
	}

	runbookSvc := runbook.NewRunbookService(cfg.Runbooks, os.Getenv("GITHUB_TOKEN"), "")
	runner := rcarunner.NewRunner(pools, engine, runbookSvc, defaultCanonicalModel(cfg))

	workers, queueSize := cfg.Queue.Workers, cfg.Queue.QueueSize
	if workers < 1 {
		workers = 4
	}
	if queueSize < 1 {
		queueSize = 256
	}
	taskQueue := queue.NewPool(workers, queueSize)
	taskQueue.Start(ctx)
	defer taskQueue.Stop()

	pipeline := ingest.NewPipeline(pools, taskQueue, runner, slackSvc)
	if cfg.Queue.RCAGraceSeconds > 0 {
		pipeline.RCAGrace = time.Duration(cfg.Queue.RCAGraceSeconds) * time.Second
	}

	server := api.NewServer(pipeline, gw)

	addr := cfg.Server.Addr
	if addr == "" {
		addr = ":" + getEnv("HTTP_PORT", "8080")
	}
	log.Info("starting http server", "addr", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	runner.Stop()
	log.Info("shutdown complete")
}
