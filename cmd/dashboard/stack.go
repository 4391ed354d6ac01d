package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/meghaexpress/hub-dashboard/internal/backend"
	"github.com/meghaexpress/hub-dashboard/internal/config"
	"github.com/meghaexpress/hub-dashboard/internal/errors"
	"github.com/meghaexpress/hub-dashboard/pkg/assets"
	"github.com/meghaexpress/hub-dashboard/pkg/auth"
	"github.com/meghaexpress/hub-dashboard/pkg/routegate"
	"github.com/meghaexpress/hub-dashboard/pkg/tokenstore"
)

// loadConfig reads --config when given, otherwise ./dashboard.yaml if it
// exists, and validates the result.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path == "" {
		cfg, err = config.Load(config.ConfigFileName)
	} else {
		cfg, err = config.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func policyFromConfig(a config.AuthConfig) *routegate.Policy {
	return routegate.NewPolicy(
		routegate.WithPublicPaths(a.PublicPaths...),
		routegate.WithHomePath(a.HomePath),
		routegate.WithSignUpPath(a.SignUpPath),
		routegate.WithDashboardPath(a.DashboardPath),
	)
}

// storage is the durable token store plus whatever connection backs it.
type storage struct {
	tokenstore.Store
	closers []func() error
}

func (s *storage) Close() error {
	err := s.Store.Close()
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*storage, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, errors.New("E200").WithKey("storage.redis_addr").Wrap(err)
		}
		logger.Info("token storage ready", "driver", cfg.Driver, "addr", cfg.RedisAddr)
		return &storage{
			Store:   tokenstore.NewRedisStore(client, tokenstore.WithRedisPrefix(cfg.RedisPrefix)),
			closers: []func() error{client.Close},
		}, nil

	case config.DriverPostgres, config.DriverSQLite:
		dialect, err := tokenstore.ParseDialect(cfg.Driver)
		if err != nil {
			return nil, errors.New("E104").WithKey("storage.driver").Wrap(err)
		}
		db, err := tokenstore.OpenSQL(dialect, cfg.DSN)
		if err != nil {
			return nil, errors.New("E200").WithKey("storage.dsn").Wrap(err)
		}
		if err := pingDB(ctx, db); err != nil {
			db.Close()
			return nil, errors.New("E200").WithKey("storage.dsn").Wrap(err)
		}
		store := tokenstore.NewSQLStore(db,
			tokenstore.WithSQLDialect(dialect),
			tokenstore.WithSQLTableName(cfg.Table),
			tokenstore.WithSQLCleanupInterval(cfg.CleanupInterval),
			tokenstore.WithSQLLogger(logger),
		)
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			db.Close()
			return nil, errors.New("E201").WithKey("storage.table").Wrap(err)
		}
		logger.Info("token storage ready", "driver", cfg.Driver, "table", cfg.Table)
		return &storage{Store: store, closers: []func() error{db.Close}}, nil

	default:
		logger.Info("token storage ready", "driver", config.DriverMemory)
		return &storage{
			Store: tokenstore.NewMemoryStore(tokenstore.WithCleanupInterval(cfg.CleanupInterval)),
		}, nil
	}
}

func pingDB(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// openAssets picks the asset source (S3, a directory, or the embedded
// bundle) and loads the fingerprint manifest from it when configured.
func openAssets(ctx context.Context, cfg config.AssetsConfig, embedded assets.Source, logger *slog.Logger) (assets.Source, assets.Resolver, error) {
	var src assets.Source
	switch {
	case cfg.S3Bucket != "":
		client := assets.NewS3Client(assets.S3Config{
			Region:   cfg.S3Region,
			Endpoint: cfg.S3Endpoint,
		})
		src = assets.NewS3Source(client, cfg.S3Bucket, cfg.S3Prefix)
		logger.Info("serving assets from s3", "bucket", cfg.S3Bucket, "prefix", cfg.S3Prefix)
	case cfg.Dir != "":
		src = assets.NewDirSource(cfg.Dir)
		logger.Info("serving assets from directory", "dir", cfg.Dir)
	default:
		src = embedded
	}

	if cfg.Manifest == "" {
		return src, assets.NewPassthroughResolver(cfg.Prefix), nil
	}
	m, err := assets.LoadFrom(ctx, src, cfg.Manifest)
	if err != nil {
		return nil, nil, errors.New("E202").WithKey("assets.manifest").Wrap(err)
	}
	logger.Info("asset manifest loaded", "entries", m.Len())
	return src, assets.NewResolver(m, cfg.Prefix), nil
}

func cacheControl(mode string) assets.CacheControl {
	if mode == "none" {
		return assets.CacheControlNone
	}
	return assets.CacheControlProduction
}

// validators builds the restore-time token checks.
func validators(cfg config.AuthConfig, client *backend.Client, logger *slog.Logger) []auth.Validator {
	var vs []auth.Validator
	if cfg.CheckExpiry {
		vs = append(vs, auth.ExpiryCheck{Leeway: 30 * time.Second})
	}
	if cfg.Revalidate {
		vs = append(vs, auth.ValidatorFunc(func(ctx context.Context, token string) error {
			_, err := client.CurrentUser(ctx, token)
			switch {
			case err == nil:
				return nil
			case backend.IsUnauthorized(err):
				return auth.ErrSessionRevoked
			default:
				// An unreachable backend says nothing about the token.
				logger.Warn("session revalidation skipped", "error", err)
				return nil
			}
		}))
	}
	return vs
}

// newMetricsRegistry returns a registry carrying the Go runtime and
// process collectors.
func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// setupTracing installs a global tracer provider so request spans carry
// ids into the logs. The returned function flushes and stops it.
func setupTracing(cfg config.TracingConfig) (func(context.Context) error, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", version),
	))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp.Shutdown, nil
}
