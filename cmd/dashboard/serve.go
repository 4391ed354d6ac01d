package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meghaexpress/hub-dashboard/internal/backend"
	"github.com/meghaexpress/hub-dashboard/internal/config"
	"github.com/meghaexpress/hub-dashboard/internal/errors"
	"github.com/meghaexpress/hub-dashboard/internal/logging"
	"github.com/meghaexpress/hub-dashboard/internal/web"
	"github.com/meghaexpress/hub-dashboard/pkg/assets"
	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/authforms"
	"github.com/meghaexpress/hub-dashboard/pkg/middleware"
	"github.com/meghaexpress/hub-dashboard/pkg/session"
)

func serveCmd(configPath *string) *cobra.Command {
	var (
		addr     string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard HTTP server",
		Long: `Run the dashboard HTTP server.

Examples:
  dashboard serve
  dashboard serve --addr=:8080
  DASHBOARD_STORAGE_DRIVER=redis DASHBOARD_REDIS_ADDR=localhost:6379 dashboard serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level: "+logging.LevelNames())
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger, err := logging.Setup(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return errors.New("E108").WithKey("log.level").Wrap(err)
	}

	var tracing []middleware.OTelOption
	if cfg.Tracing.Enabled {
		shutdown, err := setupTracing(cfg.Tracing)
		if err != nil {
			return err
		}
		defer shutdown(context.Background())
		tracing = []middleware.OTelOption{middleware.WithTracerName(cfg.Tracing.ServiceName)}
	}

	store, err := openStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	src, resolver, err := openAssets(ctx, cfg.Assets, assets.NewFSSource(web.EmbeddedAssets()), logger)
	if err != nil {
		return err
	}

	client, err := backend.New(cfg.Backend.BaseURL,
		backend.WithTimeout(cfg.Backend.Timeout),
		backend.WithLogger(logger),
		backend.WithTracerName(cfg.Tracing.ServiceName),
	)
	if err != nil {
		return errors.New("E103").WithKey("backend.base_url").Wrap(err)
	}

	var (
		metrics  *middleware.Metrics
		gatherer = newMetricsRegistry()
	)
	if cfg.Metrics.Enabled {
		metrics = middleware.NewMetrics(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(gatherer),
		)
	}

	forms := authforms.NewService(client,
		authforms.WithDistinguishFailures(cfg.Auth.DistinguishFailures),
		authforms.WithIDGenerator(authforms.AccountIDs(cfg.Backend.AccountIDPrefix)),
		authforms.WithDashboardPath(cfg.Auth.DashboardPath),
		authforms.WithObserver(func(form string, o authforms.Outcome) {
			metrics.RecordSubmission(form, string(o))
		}),
		authforms.WithLogger(logger),
	)

	sessions := session.NewStore(store,
		session.WithMaxAge(cfg.Auth.CookieMaxAge),
		session.WithCookieDomain(cfg.HTTP.CookieDomain),
		session.WithSecureCookies(cfg.HTTP.SecureCookies),
	)

	webCfg := web.Config{
		Sessions: sessions,
		Forms:    forms,
		Users:    client,
		Policy:   policyFromConfig(cfg.Auth),
		RegistryConfig: auth.RegistryConfig{
			IdleTimeout: cfg.Auth.IdleTimeout,
		},
		Validators:   validators(cfg.Auth, client, logger),
		LoginPath:    cfg.Auth.LoginPath,
		Assets:       src,
		AssetsPrefix: cfg.Assets.Prefix,
		AssetsCache:  cacheControl(cfg.Assets.Cache),
		Resolver:     resolver,
		Metrics:      metrics,
		Tracing:      tracing,
		Logger:       logger,
	}
	if cfg.Metrics.Enabled {
		webCfg.Gatherer = gatherer
	}
	srv, err := web.New(webCfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dashboard listening",
			"addr", cfg.HTTP.Addr,
			"backend", client.BaseURL(),
			"storage", cfg.Storage.Driver,
			"version", version)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.New("E401").Wrap(err).WithDetail(fmt.Sprintf("Listening on %s failed.", cfg.HTTP.Addr))
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("auth registry shutdown", "error", err)
	}
	slog.Info("dashboard stopped")
	return nil
}
