package api

import (
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	gormlib "gorm.io/gorm"

	"yoco/stocksync/internal/common"
	"yoco/stocksync/internal/config"
	"yoco/stocksync/internal/db"
	"yoco/stocksync/internal/db/repositories"
	"yoco/stocksync/internal/jobs"
	"yoco/stocksync/internal/metrics"
	"yoco/stocksync/internal/providers"
	"yoco/stocksync/internal/services"
	"yoco/stocksync/internal/workers"
)

type Repositories struct {
	Catalog  *repositories.CatalogRepository
	Stock    *repositories.SupplierStockRepo
	Configs  *repositories.SupplierConfigRepo
	Logs     *repositories.SyncLogRepo
	Batches  *repositories.SyncBatchRepo
	Schedule *repositories.ScheduledSyncRepo
	Leases   *repositories.LeaseRepo
}

type Services struct {
	Cache     common.CacheInterface
	Locker    common.Locker
	Events    common.EventPublisher
	Fetcher   *providers.FeedFetcher
	Backorder *services.BackorderService
	Sync      *jobs.SupplierSyncJob
	Scheduler *jobs.Scheduler
	Workers   *workers.WorkersContainer
	Tokens    *common.TokenSigner
}

type Dependencies struct {
	Config   *config.Config
	ORM      *gormlib.DB
	Catalog  *sqlx.DB
	Redis    *redis.Client
	Metrics  *metrics.MetricsRegistry
	Repo     *Repositories
	Services *Services
}

// InitDependencies opens every connection named in cfg and wires the engine.
// reg receives the prometheus collectors.
func InitDependencies(cfg *config.Config, reg prometheus.Registerer, logger *zap.SugaredLogger) (*Dependencies, error) {
	orm, err := db.InitORM(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	catalog, err := db.InitCatalog(cfg.Catalog.Driver, cfg.Catalog.DSN, cfg.Database.MaxRetries)
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = common.NewRedisClient(common.RedisOptions{
			Addr:     cfg.Redis.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	return NewDependencies(cfg, orm, catalog, redisClient, metrics.NewMetricsRegistry(reg), logger), nil
}

// NewDependencies wires the engine over already opened connections.
// redisClient may be nil when no redis backend is configured.
func NewDependencies(
	cfg *config.Config,
	orm *gormlib.DB,
	catalog *sqlx.DB,
	redisClient *redis.Client,
	metricsReg *metrics.MetricsRegistry,
	logger *zap.SugaredLogger,
) *Dependencies {
	repos := &Repositories{
		Catalog:  repositories.NewCatalogRepository(catalog),
		Stock:    repositories.NewSupplierStockRepo(orm),
		Configs:  repositories.NewSupplierConfigRepo(orm),
		Logs:     repositories.NewSyncLogRepo(orm),
		Batches:  repositories.NewSyncBatchRepo(orm),
		Schedule: repositories.NewScheduledSyncRepo(orm),
		Leases:   repositories.NewLeaseRepo(orm),
	}

	var cache common.CacheInterface
	if cfg.Cache.Backend == "redis" && redisClient != nil {
		cache = common.NewRedisCacheService(redisClient, logger)
	} else {
		cache = common.NewCacheService(cfg.Cache.URLTTL, cfg.Cache.CleanupInterval)
	}

	var locker common.Locker = repos.Leases
	if cfg.Sync.LockBackend == "redis" && redisClient != nil {
		locker = common.NewRedisLocker(redisClient)
	}

	var events common.EventPublisher = common.NewLogEventPublisher(logger)
	if cfg.Events.Backend == "redis" && redisClient != nil {
		events = common.NewRedisEventPublisher(redisClient, cfg.Events.Stream)
	}

	fetcher := providers.NewFeedFetcher(cache, providers.FetcherOptions{
		HTTPTimeout: cfg.Sync.HTTPTimeout,
		FTPTimeout:  cfg.Sync.FTPTimeout,
		UserAgent:   cfg.Sync.UserAgent,
		URLTTL:      cfg.Cache.URLTTL,
		FTPTTL:      cfg.Cache.FTPTTL,
	}, metricsReg, logger)

	backorder := services.NewBackorderService(
		repos.Catalog, repos.Stock, repos.Configs, events,
		cfg.Backorder.FallbackDeliveryText, logger,
	)

	syncJob, scheduler := jobs.InitializeJobs(cfg, jobs.SyncJobDeps{
		Configs:   repos.Configs,
		Catalog:   repos.Catalog,
		Stock:     repos.Stock,
		Backorder: backorder,
		Fetcher:   fetcher,
		Logs:      repos.Logs,
		Batches:   repos.Batches,
		Locker:    locker,
		Events:    events,
		Metrics:   metricsReg,
	}, repos.Schedule, logger)

	return &Dependencies{
		Config:  cfg,
		ORM:     orm,
		Catalog: catalog,
		Redis:   redisClient,
		Metrics: metricsReg,
		Repo:    repos,
		Services: &Services{
			Cache:     cache,
			Locker:    locker,
			Events:    events,
			Fetcher:   fetcher,
			Backorder: backorder,
			Sync:      syncJob,
			Scheduler: scheduler,
			Workers:   workers.InitWorkers(cfg, repos.Logs, repos.Batches, metricsReg, logger),
			Tokens:    common.NewTokenSigner([]byte(cfg.API.JWTSecret)),
		},
	}
}

// Close releases the cache and every open connection
func (d *Dependencies) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if d.Services != nil && d.Services.Cache != nil {
		keep(d.Services.Cache.Close())
	}
	if d.Redis != nil {
		keep(d.Redis.Close())
	}
	if d.Catalog != nil {
		keep(d.Catalog.Close())
	}
	if d.ORM != nil {
		if sqlDB, err := d.ORM.DB(); err == nil {
			keep(sqlDB.Close())
		}
	}
	return firstErr
}
