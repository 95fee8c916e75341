package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"

	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/filetree"
	"mercator-hq/custodian/pkg/retention/audit"
	"mercator-hq/custodian/pkg/retention/executor"
	"mercator-hq/custodian/pkg/retention/files"
	"mercator-hq/custodian/pkg/retention/hierarchy"
	"mercator-hq/custodian/pkg/retention/policies"
	"mercator-hq/custodian/pkg/retention/scanner"
	"mercator-hq/custodian/pkg/retention/storage"
	"mercator-hq/custodian/pkg/telemetry/health"
	"mercator-hq/custodian/pkg/telemetry/metrics"
	"mercator-hq/custodian/pkg/telemetry/tracing"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      *config.Config
	store    *storage.SQLStore
	tree     filetree.Tree
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	policies *policies.Service
	matcher  *policies.Matcher
	resolver *hierarchy.Resolver
	files    *files.Service
	executor *executor.Executor
	audit    *audit.Logger
	scanner  *scanner.Scanner
}

// newApp opens the store and file tree described by cfg and wires the
// retention services on top of them.
func newApp(cfg *config.Config, opts ...scanner.Option) (*app, error) {
	store, err := storage.Open(storageConfig(&cfg.Database))
	if err != nil {
		return nil, err
	}

	tree, err := openTree(&cfg.FileTree, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a := &app{
		cfg:     cfg,
		store:   store,
		tree:    tree,
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:  tracer,
	}

	logger := slog.Default()
	a.policies = policies.NewService(store, logger).WithMetrics(a.metrics)
	a.matcher = policies.NewMatcher(tree, store, a.policies)
	a.resolver = hierarchy.NewResolver(tree, store)
	a.files = files.NewService(store, a.matcher, a.resolver).WithMetrics(a.metrics)
	a.executor = executor.NewExecutor(tree)
	a.audit = audit.NewLogger(store, a.metrics)

	opts = append([]scanner.Option{
		scanner.WithClaimTTL(cfg.Scanner.ClaimTTL),
		scanner.WithTimeout(cfg.Scanner.Timeout),
		scanner.WithMetrics(a.metrics),
		scanner.WithLogger(logger),
	}, opts...)
	a.scanner = scanner.New(store, a.executor, a.audit, opts...)

	return a, nil
}

// openApp wires an app from the loaded process configuration.
func openApp(opts ...scanner.Option) (*app, error) {
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return newApp(cfg, opts...)
}

// healthChecker registers the readiness checks for the store and tree.
func (a *app) healthChecker() *health.Checker {
	checker := health.New(health.DefaultCheckTimeout)
	checker.RegisterCheck("database", health.StoreCheck(a.store))
	checker.RegisterCheck("filetree", health.TreeCheck(a.tree))
	return checker
}

// Close flushes traces and closes the store.
func (a *app) Close() error {
	var errs []error
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func storageConfig(db *config.DatabaseConfig) *storage.Config {
	return &storage.Config{
		Driver:       db.Driver,
		DSN:          db.DSN,
		MaxOpenConns: db.MaxOpenConns,
		MaxIdleConns: db.MaxIdleConns,
		WALMode:      db.WALMode,
		BusyTimeout:  db.BusyTimeout,
		AutoMigrate:  db.MigrateOnStart,
	}
}

// openTree builds the configured file tree. Persistent backends keep node
// ids in the database so retention records survive restarts.
func openTree(cfg *config.FileTreeConfig, store *storage.SQLStore) (filetree.Tree, error) {
	switch cfg.Backend {
	case "memory":
		return filetree.NewAferoTree(afero.NewMemMapFs(), nil), nil
	case "s3":
		client, err := filetree.NewS3Client(filetree.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return filetree.NewS3Tree(client, cfg.S3.Bucket, cfg.S3.Prefix, filetree.NewSQLIndex(store.DB())), nil
	case "", "local":
		return filetree.NewLocalTree(cfg.Root, filetree.NewSQLIndex(store.DB()))
	default:
		return nil, fmt.Errorf("unsupported file tree backend: %s", cfg.Backend)
	}
}
