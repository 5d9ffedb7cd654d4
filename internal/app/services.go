package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"

	"github.com/odyssey-erp/freightdesk/internal/finance"
	"github.com/odyssey-erp/freightdesk/internal/freight"
	"github.com/odyssey-erp/freightdesk/internal/ledger"
	"github.com/odyssey-erp/freightdesk/internal/observability"
	"github.com/odyssey-erp/freightdesk/internal/platform/cache"
	"github.com/odyssey-erp/freightdesk/internal/platform/db"
	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

// Backend is the document store selected by STORE_BACKEND.
type Backend struct {
	Store  kv.Store
	Locker kv.Locker
	Redis  *redis.Client
	Pool   *pgxpool.Pool
}

// OpenBackend connects the configured store. The memory backend needs no connection.
func OpenBackend(ctx context.Context, cfg *Config) (*Backend, error) {
	switch cfg.StoreBackend {
	case BackendMemory:
		return &Backend{Store: kv.NewMemory()}, nil
	case BackendRedis:
		client, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		return &Backend{
			Store:  kv.NewRedis(client),
			Locker: kv.NewRedisLocker(client, cfg.StoreLockTTL),
			Redis:  client,
		}, nil
	case BackendPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return nil, err
		}
		store := kv.NewPostgres(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("app: ensure schema: %w", err)
		}
		return &Backend{Store: store, Pool: pool}, nil
	default:
		return nil, fmt.Errorf("app: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}

// Close releases backend connections.
func (b *Backend) Close() error {
	var err error
	if b.Redis != nil {
		err = multierr.Append(err, b.Redis.Close())
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
	return err
}

// Services are the domain services shared by the API and the worker.
type Services struct {
	Rates   *finance.RateService
	Freight *freight.Store
	Ledger  *ledger.Service
}

// NewServices wires rates, the workflow store and the ledger over one backend.
// Persisted exchange rates are loaded before the store starts converting.
func NewServices(ctx context.Context, cfg *Config, backend *Backend, logger *slog.Logger, metrics *observability.Metrics) (*Services, error) {
	calc := finance.NewCalculator()
	rates := finance.NewRateService(calc, finance.NewRateStore(backend.Store), logger)
	if err := rates.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: load rates: %w", err)
	}

	ledgerService := ledger.NewService(ledger.NewKVRepository(backend.Store, backend.Locker), logger)

	store := freight.NewStore(freight.NewKVRepository(backend.Store, backend.Locker, cfg.StoreKey), calc, logger)
	store.SetPhoneRegion(cfg.DefaultPhoneRegion)
	store.SetPostingHook(ledger.NewHooks(ledgerService, calc))
	if metrics != nil {
		store.SetMetrics(metrics)
	}

	return &Services{Rates: rates, Freight: store, Ledger: ledgerService}, nil
}

// WatchRates keeps the exchange rates in step with other processes sharing the
// backend. It blocks until ctx is done and returns at once for the memory backend.
func (s *Services) WatchRates(ctx context.Context, cfg *Config) {
	if cfg.StoreBackend == BackendMemory || cfg.RateRefreshInterval == 0 {
		return
	}
	s.Rates.Watch(ctx, cfg.RateRefreshInterval)
}
