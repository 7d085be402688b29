package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stocksync/internal/config"
	"stocksync/internal/database"
	"stocksync/internal/events"
	"stocksync/internal/lock"
	"stocksync/internal/logger"
	"stocksync/internal/repository"
	"stocksync/internal/secrets"
	"stocksync/internal/services/catalogsync"
	"stocksync/internal/services/clover"
	"stocksync/internal/session"
	"stocksync/internal/worker/processors/export"
	"stocksync/internal/worker/processors/importer"
	"stocksync/internal/worker/processors/validation"
)

const (
	sessionPrefix = "clover_session:"
	statePrefix   = "oauth_state:"
	lockPrefix    = "lock:"
)

// App holds the shared services both binaries run on.
type App struct {
	DB        *database.Database
	SQL       *sql.DB
	Redis     *redis.Client
	Publisher events.Publisher
	Products  *repository.ProductRepository
	Sync      *catalogsync.Service
}

// Build connects to the database and, when configured, Redis and Kafka.
// Without REDIS_URL sessions and locks live in process, which is only safe
// for a single API instance.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := database.New(cfg.DatabaseURL, cfg.Env == "development" && cfg.LogLevel == "debug")
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB.DB()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sealer, err := secrets.NewSealer(cfg.EncryptionKey)
	if err != nil {
		db.Close()
		return nil, err
	}

	a := &App{DB: db, SQL: sqlDB}

	var sessions, states session.Store
	var locker lock.Locker
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		sessions = session.NewRedisStore(a.Redis, sealer, sessionPrefix, cfg.SessionTTL)
		states = session.NewRedisStore(a.Redis, sealer, statePrefix, cfg.SessionTTL)
		locker = lock.NewRedisLocker(a.Redis, lockPrefix)
		log.Info("Using redis for sessions and sync locks")
	} else {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		states = session.NewMemoryStore(cfg.SessionTTL)
		locker = lock.NewMemoryLocker()
		log.Warn("REDIS_URL not set, sessions and sync locks are in-process")
	}

	if len(cfg.KafkaBrokers) > 0 {
		a.Publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaSyncEventsTopic, cfg.KafkaSyncRequestsTopic, log)
	} else {
		a.Publisher = events.NoopPublisher{}
	}

	if err := cfg.ValidateClover(); err != nil {
		log.Warn("Clover sync endpoints are disabled until configured", zap.Error(err))
	}

	a.Products = repository.NewProductRepository(db.DB)
	a.Sync = catalogsync.New(cfg, catalogsync.Deps{
		OAuth:     clover.NewOAuthService(cfg.Clover, log),
		Clients:   clover.NewClientFactory(cfg.Clover, log),
		Users:     repository.NewUserRepository(db.DB, sealer),
		Locations: repository.NewLocationRepository(db.DB),
		Runs:      repository.NewSyncRunRepository(db.DB),
		Sessions:  sessions,
		States:    states,
		Locker:    locker,
		Importer:  importer.New(a.Products, clover.NewPaginator(cfg.Clover.MaxPages), log),
		Exporter: export.New(
			a.Products,
			repository.NewInventoryRepository(db.DB),
			validation.New(log),
			cfg.SyncConcurrency,
			log,
		),
		Publisher: a.Publisher,
	}, log)

	return a, nil
}

// Close releases connections in reverse order of Build.
func (a *App) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Publisher != nil {
		keep(a.Publisher.Close())
	}
	if a.Redis != nil {
		keep(a.Redis.Close())
	}
	keep(a.DB.Close())
	return firstErr
}
