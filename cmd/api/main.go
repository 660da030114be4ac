package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lending_crm_backend/internal/adapters/storage"
	"lending_crm_backend/internal/audit"
	"lending_crm_backend/internal/bulkdedupe"
	"lending_crm_backend/internal/email"
	"lending_crm_backend/internal/events"
	"lending_crm_backend/internal/exports"
	apphttp "lending_crm_backend/internal/http"
	"lending_crm_backend/internal/http/router"
	"lending_crm_backend/internal/leads"
	"lending_crm_backend/internal/lenders"
	"lending_crm_backend/migrations"
	"lending_crm_backend/platform/config"
	"lending_crm_backend/platform/db"
	"lending_crm_backend/platform/logger"
	"lending_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	rdb, err := newRedisClient(cfg)
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		panic("failed to initialize redis client: " + err.Error())
	}
	defer rdb.Close()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	audit.New(log).Register(eventBus)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Result archive (MinIO) is optional; bulk runs work without it.
	var archiver *storage.Archiver
	if cfg.IsArchiveEnabled() {
		archiver, err = storage.NewArchiver(ctx, cfg)
		if err != nil {
			log.Error("failed to initialize result archiver", "error", err)
			panic("failed to initialize result archiver: " + err.Error())
		}
		log.Info("result archiver initialized", "bucket", cfg.GetMinioBucketBulkResults())
	} else {
		log.Warn("MINIO_* not configured; bulk result archiving disabled")
	}

	var mailer email.Sender
	if cfg.IsEmailEnabled() {
		mailer = email.NewSMTPSender(cfg)
		log.Info("run summary emails enabled", "operator", cfg.GetOperatorEmail())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule, err := leads.NewModule(pool, rdb, eventBus, val, cfg.GetStagingTTL(), log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	lendersModule, err := lenders.NewModule(ctx, pool, eventBus, cfg.GetLendersFile(), log)
	if err != nil {
		log.Error("failed to initialize lenders module", "error", err)
		panic("failed to initialize lenders module: " + err.Error())
	}

	bulkDedupeModule := bulkdedupe.NewModule(cfg, archiver, mailer, eventBus, log)
	exportsModule := exports.NewModule(pool, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			lendersModule,
			bulkDedupeModule,
			exportsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func newRedisClient(cfg *config.Config) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
