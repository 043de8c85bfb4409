package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/indexsync/internal/config"
	"github.com/kailas-cloud/indexsync/internal/db"
	dbRedis "github.com/kailas-cloud/indexsync/internal/db/redis"
	dbValkey "github.com/kailas-cloud/indexsync/internal/db/valkey"
	"github.com/kailas-cloud/indexsync/internal/failure"
	logpkg "github.com/kailas-cloud/indexsync/internal/logger"
	"github.com/kailas-cloud/indexsync/internal/metrics"
	indexrepo "github.com/kailas-cloud/indexsync/internal/repository/index"
	"github.com/kailas-cloud/indexsync/internal/secrets"
	"github.com/kailas-cloud/indexsync/internal/source"
	"github.com/kailas-cloud/indexsync/internal/source/memory"
	"github.com/kailas-cloud/indexsync/internal/source/sqlsource"
	healthuc "github.com/kailas-cloud/indexsync/internal/usecase/health"
	schemauc "github.com/kailas-cloud/indexsync/internal/usecase/schema"
	"github.com/kailas-cloud/indexsync/internal/usecase/syncer"
	"github.com/kailas-cloud/indexsync/internal/version"
)

// app is the composition root shared by every command.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *db.Handle
	source   source.Source
	repo     *indexrepo.Repo
	schema   *schemauc.Manager
	sync     *syncer.Service
	reporter *failure.Reporter
	health   *healthuc.Service
}

func loadConfig(env, path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load(env)
}

func newApp(ctx context.Context, env, configPath string) (*app, error) {
	cfg, err := loadConfig(env, configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	if cfg.NeedsSecrets() {
		resolver, err := secrets.NewFromEnv(ctx)
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolveSecrets(ctx, resolver); err != nil {
			return nil, err
		}
	}

	logger.Info("Starting indexsync",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("index", cfg.Index.Name),
		zap.String("source_driver", cfg.Source.Driver),
	)

	metrics.RegisterSyncMetrics()

	src, err := openSource(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}

	store := db.NewHandle(storeOpener(cfg.Database))
	keys := indexrepo.NewKeys(cfg.Storage.KeyPrefix, cfg.Index.Name)
	repo := indexrepo.New(store, keys, cfg.Index.DefaultAnalyzer)

	reporter := failure.NewReporter(logger, cfg.Sync.FailureCapacity)
	schema := schemauc.New(repo, src, repo.Name(), cfg.Index.DefaultAnalyzer, logger)
	svc := syncer.New(schema, repo, src, reporter, logger).
		WithRetry(failure.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval(),
			MaxInterval:     cfg.Retry.MaxInterval(),
		}).
		WithBatchSize(cfg.Sync.BatchSize).
		WithRateLimit(cfg.Sync.MaxBatchesPerSecond)

	return &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		source:   src,
		repo:     repo,
		schema:   schema,
		sync:     svc,
		reporter: reporter,
		health:   healthuc.New(store, map[string]healthuc.Pinger{"source": src}),
	}, nil
}

// waitForStore blocks until the remote index answers.
func (a *app) waitForStore(ctx context.Context) error {
	timeout := time.Duration(a.cfg.Database.ReadinessTimeout) * time.Second
	if err := a.store.WaitForReady(ctx, timeout); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database")
	return nil
}

func (a *app) Close() {
	a.store.Close()
	if err := a.source.Close(); err != nil {
		a.logger.Warn("closing source", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func storeOpener(cfg config.DatabaseConfig) db.Opener {
	rc := dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	return func() (db.Store, error) {
		switch cfg.Driver {
		case "valkey":
			s, err := dbValkey.NewStore(rc)
			if err != nil {
				return nil, err
			}
			return s, nil
		case "redis":
			s, err := dbRedis.NewStore(rc)
			if err != nil {
				return nil, err
			}
			return s, nil
		default:
			return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
		}
	}
}

func openSource(ctx context.Context, cfg config.SourceConfig) (source.Source, error) {
	if cfg.Driver == "memory" {
		return memory.New(), nil
	}
	s, err := sqlsource.Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	return s, nil
}
