// Package app wires the sync engine from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/creator-sync/internal/cleanup"
	"github.com/creator-sync/internal/config"
	"github.com/creator-sync/internal/fetcher"
	"github.com/creator-sync/internal/lease"
	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/media"
	"github.com/creator-sync/internal/notify"
	"github.com/creator-sync/internal/persistence"
	"github.com/creator-sync/internal/provider"
	"github.com/creator-sync/internal/ratelimit"
	"github.com/creator-sync/internal/service"
	"github.com/creator-sync/internal/storage"
	"github.com/creator-sync/internal/worker"
)

// App holds the wired services and the connections they own
type App struct {
	Sync      *service.SyncService
	Snapshots *service.SnapshotService
	Members   *storage.MembershipRepository

	postgres   *storage.PostgresDB
	clickhouse *storage.ClickHouseDB
	redis      *redis.Client
	rabbit     *notify.RabbitMQ
}

// Build connects to every backing service and assembles the sync pipeline.
// ClickHouse and RabbitMQ are optional: when unreachable or unset the mirror is
// skipped and error events go to the log.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.FromContext(ctx)
	a := &App{}

	var err error
	a.postgres, err = storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	a.redis, err = storage.NewRedisClient(&cfg.Database.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	var mirror *storage.SnapshotMirror
	a.clickhouse, err = storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, snapshot mirror disabled")
	} else {
		mirror = storage.NewSnapshotMirror(a.clickhouse)
	}

	catalog, err := provider.LoadCatalog(cfg.Provider.CatalogFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	tracker, err := ratelimit.NewBudgetTracker(&ratelimit.BudgetTrackerConfig{
		Redis:          a.redis,
		TotalBudget:    cfg.Provider.BudgetPerMinute,
		ReservedBudget: cfg.Provider.BudgetReserved,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("provider budget: %w", err)
	}
	client := provider.NewClient(provider.Options{
		BaseURL:    cfg.Provider.BaseURL,
		Token:      cfg.Provider.Token,
		RPS:        cfg.Provider.RPS,
		Timeout:    cfg.Provider.Timeout,
		MaxRetries: cfg.Provider.MaxRetries,
		Catalog:    catalog,
		Budget:     ratelimit.NewBudget(tracker, ratelimit.NewCostRegistry(nil), cfg.Provider.BudgetMaxWait),
	})
	fetchers := fetcher.NewRegistry(client, fetcher.Options{
		BatchSizes: cfg.Sync.BatchSizes,
		ProxyGroup: cfg.Provider.ProxyGroup,
	})

	store, err := media.NewGCSStore(ctx, media.GCSOptions{
		Bucket:          cfg.Media.Bucket,
		CredentialsFile: cfg.Media.CredentialsFile,
		PublicBaseURL:   cfg.Media.PublicBaseURL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("object storage: %w", err)
	}
	ingestor := media.NewIngestor(store, media.Options{
		MinBytes: cfg.Media.MinBytes,
		Timeout:  cfg.Media.Timeout,
	})

	var notifier notify.Notifier = notify.NewLogNotifier(logging.GetGlobalLogger())
	if cfg.Notify.RabbitMQURL != "" {
		a.rabbit, err = notify.NewRabbitMQ(notify.Config{
			URL:        cfg.Notify.RabbitMQURL,
			Exchange:   cfg.Notify.Exchange,
			RoutingKey: cfg.Notify.RoutingKey,
			QueueName:  cfg.Notify.Queue,
		}, logging.GetGlobalLogger())
		if err != nil {
			logger.WithError(err).Warn("RabbitMQ unavailable, error events will only be logged")
		} else {
			notifier = a.rabbit
		}
	}

	var cleaner cleanup.Cleaner = cleanup.Nop{}
	if cfg.Cleanup.URL != "" {
		cleaner = cleanup.NewHTTPCleaner(cfg.Cleanup.URL, cfg.Auth.SchedulerSecret, cfg.Cleanup.Timeout)
	}

	videos := storage.NewVideoRepository(a.postgres)
	deps := service.Dependencies{
		Accounts:  storage.NewAccountRepository(a.postgres),
		Videos:    videos,
		Fetchers:  fetchers,
		Ingester:  ingestor,
		Committer: persistence.NewCommitter(storage.NewBatchWriter(a.postgres), cfg.Sync.CommitBatchSize),
		Leases:    lease.NewLocker(a.redis, ""),
		Notifier:  notifier,
		Cleaner:   cleaner,
		Pool:      worker.NewPool(cfg.Media.Workers),
	}
	// a nil *SnapshotMirror must not become a non-nil interface
	var trend service.TrendReader
	if mirror != nil {
		deps.Mirror = mirror
		trend = mirror
	}

	a.Sync = service.NewSyncService(deps, service.SyncOptions{
		LeaseTTL:       cfg.Sync.LeaseTTL,
		RunTimeout:     cfg.Sync.RunTimeout,
		CleanupTimeout: cfg.Cleanup.Timeout,
	})
	a.Snapshots = service.NewSnapshotService(trend, videos)
	a.Members = storage.NewMembershipRepository(a.postgres)

	return a, nil
}

// Close releases every connection the app owns
func (a *App) Close() {
	if a.rabbit != nil {
		_ = a.rabbit.Close()
	}
	if a.clickhouse != nil {
		_ = a.clickhouse.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
}
