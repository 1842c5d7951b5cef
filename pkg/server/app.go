package server

import (
	"context"
	"fmt"
	"log/slog"

	"oms-backend/pkg/cache"
	"oms-backend/pkg/config"
	"oms-backend/pkg/database"
	"oms-backend/pkg/events"
	"oms-backend/pkg/notify"
	"oms-backend/pkg/storage"
	"oms-backend/pkg/utils"
	"oms-backend/pkg/workflow"
)

// App 聚合一个进程内共享的依赖
type App struct {
	Config      *config.Config
	DB          database.DatabaseInterface
	Cache       cache.Cache
	Publisher   events.Publisher
	Dispatcher  *notify.Dispatcher
	Uploader    *storage.Uploader
	Moderator   *workflow.Moderator
	Memberships *workflow.Memberships
	JWT         *utils.JWTService
	Logger      *slog.Logger

	closers []func() error
}

type Options struct {
	// InlineEvents dispatches domain events in-process even when Kafka is configured.
	InlineEvents bool
	// Cache and Store override the configured backends (tests).
	Cache cache.Cache
	Store storage.ObjectStore
}

// NewApp wires cache, object store, publisher and workflow services around db.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, db database.DatabaseInterface, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, DB: db, Logger: logger, JWT: utils.NewJWTService(cfg.JWTSecret)}

	switch {
	case opts.Cache != nil:
		app.Cache = opts.Cache
	case cfg.RedisURL != "":
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rc := cache.NewRedisCache(client, "oms:")
		app.Cache = rc
		app.closers = append(app.closers, rc.Close)
	default:
		app.Cache = cache.NewMemoryCache()
	}

	store := opts.Store
	if store == nil {
		s3cfg := storage.S3Config{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Bucket:          cfg.S3Bucket,
			Endpoint:        cfg.S3Endpoint,
		}
		if s3cfg.Configured() {
			s3store, err := storage.NewS3Store(ctx, s3cfg)
			if err != nil {
				return nil, fmt.Errorf("init s3: %w", err)
			}
			store = s3store
		} else {
			logger.Warn("object storage not configured, uploads disabled", "module", "server")
		}
	}
	app.Uploader = storage.NewUploader(store, cfg.MaxUploadBytes)

	app.Dispatcher = notify.NewDispatcher(db, logger)
	if cfg.UseKafka() && !opts.InlineEvents {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, fmt.Errorf("init kafka publisher: %w", err)
		}
		app.Publisher = kp
		app.closers = append(app.closers, kp.Close)
	} else {
		app.Publisher = events.NewInlinePublisher(app.Dispatcher, logger)
	}

	app.Moderator = workflow.NewModerator(db, app.Publisher, app.Cache, logger)
	app.Memberships = workflow.NewMemberships(db, app.Publisher, logger)
	return app, nil
}

// Close releases the cache and publisher connections. The database is owned by the caller.
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// DatabaseConfig maps the application config to the database layer's config.
func DatabaseConfig(cfg *config.Config) database.DatabaseConfig {
	return database.DatabaseConfig{
		UseLocalDB:    cfg.UseLocalDB,
		LocalDataDir:  cfg.LocalDataDir,
		PostgresDSN:   cfg.PostgresDSN,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		Debug:         cfg.Debug,
	}
}
