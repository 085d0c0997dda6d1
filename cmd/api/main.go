package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crucial707/detector/internal/config"
	"github.com/crucial707/detector/internal/db"
	"github.com/crucial707/detector/internal/logging"
	"github.com/crucial707/detector/internal/repo"
	"github.com/crucial707/detector/internal/stats"
)

// version is set with -ldflags "-X main.version=..."; falls back to the module build info.
var version = ""

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "detector-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Name:   "detector-api",
	})
	defer logger.Sync()

	settings, err := config.LoadSettings(cfg.SettingsFile, os.Environ())
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.Source() == "" {
		logger.Warn("no settings file found, using environment only", zap.String("path", cfg.SettingsFile))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database FIRST
	database, err := db.Connect(ctx, cfg.DSN(), db.PoolOptions{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()
	logger.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("name", cfg.DBName))

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DatabaseURL()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("schema migrations applied")
	}

	refresher, err := stats.NewRefresher(cfg.StatsRefreshSpec, repo.NewResourceRepo(database), repo.NewIssueRepo(database), logger.Named("stats"))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: newRouter(routerDeps{
			DB:       database,
			Config:   cfg,
			Settings: settings,
			Logger:   logger,
			Version:  buildVersion(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		refresher.Start(gctx)
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		refresher.Stop(stopCtx)
		return nil
	})
	g.Go(func() error {
		tlsOn := cfg.TLSCertFile != "" && cfg.TLSKeyFile != ""
		logger.Info("starting server", zap.String("addr", srv.Addr), zap.Bool("tls", tlsOn))

		var err error
		if tlsOn {
			err = srv.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func buildVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}
