package finance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

// RatesKey is the kv key holding the rate table.
const RatesKey = "exchangeRates"

// RateStore persists the rate table in the kv store.
type RateStore struct {
	store kv.Store
}

// NewRateStore constructs a RateStore.
func NewRateStore(store kv.Store) *RateStore {
	return &RateStore{store: store}
}

// Load reads the table. A missing key reports found=false with version 0.
func (s *RateStore) Load(ctx context.Context) (RateTable, int64, bool, error) {
	doc, ok, err := s.store.Get(ctx, RatesKey)
	if err != nil || !ok {
		return RateTable{}, 0, false, err
	}
	var table RateTable
	if err := json.Unmarshal(doc.Data, &table); err != nil {
		return RateTable{}, 0, false, fmt.Errorf("finance: decode rate table: %w", err)
	}
	return table, doc.Version, true, nil
}

// Save writes the table if the stored version still equals version.
func (s *RateStore) Save(ctx context.Context, table RateTable, version int64) (int64, error) {
	raw, err := json.Marshal(table)
	if err != nil {
		return 0, fmt.Errorf("finance: encode rate table: %w", err)
	}
	return s.store.Set(ctx, RatesKey, raw, version)
}

// RateService keeps a Calculator and its persisted table in step.
type RateService struct {
	mu      sync.Mutex
	calc    *Calculator
	store   *RateStore
	logger  *slog.Logger
	version int64
}

// NewRateService constructs a RateService.
func NewRateService(calc *Calculator, store *RateStore, logger *slog.Logger) *RateService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateService{calc: calc, store: store, logger: logger}
}

// Calculator exposes the underlying calculator for read paths.
func (s *RateService) Calculator() *Calculator {
	return s.calc
}

// Load restores the persisted table into the calculator, keeping the defaults when none is stored.
func (s *RateService) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.refresh(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("exchange rates loaded", slog.Bool("persisted", ok), slog.Int("currencies", len(s.calc.Currencies())))
	return nil
}

// Refresh picks up a table written by another process since the last load.
func (s *RateService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.refresh(ctx)
	return err
}

// refresh must be called with mu held.
func (s *RateService) refresh(ctx context.Context) (bool, error) {
	table, version, ok, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	if ok && version != s.version {
		s.calc.Restore(table)
	}
	s.version = version
	return ok, nil
}

// Watch refreshes the table every interval until ctx is done.
func (s *RateService) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("exchange rate refresh failed", slog.Any("error", err))
			}
		}
	}
}

// UpdateRate changes a rate and persists the table, reverting on a failed save.
func (s *RateService) UpdateRate(ctx context.Context, code string, rate decimal.Decimal) (RateTable, error) {
	return s.mutate(ctx, func() error { return s.calc.UpdateRate(code, rate) })
}

// AddCurrency adds a currency and persists the table, reverting on a failed save.
func (s *RateService) AddCurrency(ctx context.Context, code string, rate decimal.Decimal) (RateTable, error) {
	return s.mutate(ctx, func() error { return s.calc.AddCurrency(code, rate) })
}

// mutate applies the change on top of the latest stored table. A write that
// lands between the refresh and the save is a version conflict; the table is
// reloaded before returning so a retry starts from the winner's rates.
func (s *RateService) mutate(ctx context.Context, apply func() error) (RateTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.refresh(ctx); err != nil {
		return RateTable{}, fmt.Errorf("finance: refresh rate table: %w", err)
	}
	before := s.calc.Snapshot()
	if err := apply(); err != nil {
		return RateTable{}, err
	}
	after := s.calc.Snapshot()
	version, err := s.store.Save(ctx, after, s.version)
	if err != nil {
		s.calc.Restore(before)
		s.logger.Warn("exchange rate save failed", slog.Any("error", err))
		if errors.Is(err, kv.ErrVersionConflict) {
			if _, rerr := s.refresh(ctx); rerr != nil {
				s.logger.Warn("exchange rate reload failed", slog.Any("error", rerr))
			}
		}
		return RateTable{}, fmt.Errorf("finance: save rate table: %w", err)
	}
	s.version = version
	return after, nil
}
