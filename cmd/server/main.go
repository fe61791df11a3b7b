package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/countsheet/internal/config"
	"github.com/JonMunkholm/countsheet/internal/core"
	_ "github.com/JonMunkholm/countsheet/internal/core/layouts" // register input layouts
	"github.com/JonMunkholm/countsheet/internal/logging"
	"github.com/JonMunkholm/countsheet/internal/refdata"
	"github.com/JonMunkholm/countsheet/internal/web"
)

func main() {
	// Overload lets a local .env win over the shell environment.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	rules, err := core.LoadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		slog.Error("failed to load pipeline rules", "path", cfg.Pipeline.RulesFile, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var loader refdata.Loader
	switch strings.ToLower(cfg.Reference.Source) {
	case config.SourcePostgres:
		pool, err := refdata.NewPool(ctx, refdata.PoolConfig{
			URL:             cfg.Database.URL,
			MaxConns:        int32(cfg.Database.MaxConns),
			MinConns:        int32(cfg.Database.MinConns),
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
		})
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		loader = refdata.DBLoader{DB: pool, CatalogTable: cfg.Reference.CatalogTable, StoresTable: cfg.Reference.StoresTable}
	default:
		loader = refdata.FileLoader{CatalogPath: cfg.Reference.CatalogPath, StoresPath: cfg.Reference.StoresPath}
	}

	// A failed first load is not fatal: /healthz reports degraded and the
	// data can be reloaded once the source is fixed.
	holder := refdata.NewHolder(loader)
	if _, err := holder.Reload(ctx); err != nil {
		slog.Warn("starting without reference data", "error", err, "hint", core.FormatUserError(err))
	}

	limiter := core.NewRunLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	service, err := core.NewService(holder, core.ServiceConfig{
		OutputDir: cfg.Output.Dir,
		Rules:     rules,
		Limiter:   limiter,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	layoutKeys := make([]string, 0)
	for _, l := range core.AllLayouts() {
		layoutKeys = append(layoutKeys, l.Key)
	}
	slog.Info("input layouts registered", "layouts", layoutKeys)

	server := web.NewServer(service, holder, cfg)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartRetentionSweeper(jobCtx, core.RetentionConfig{
		Retention:     cfg.Output.Retention,
		CheckInterval: cfg.Output.SweepInterval,
	})

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if st := limiter.Status(); st.Active > 0 {
			slog.Info("waiting for runs to complete", "active", st.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("runs did not complete in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
