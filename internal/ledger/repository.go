package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

// ChartKey is the kv key holding the ledger document.
const ChartKey = "chartOfAccounts"

// Repository loads and saves the chart as a whole.
type Repository interface {
	Load(ctx context.Context) (*Chart, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, chart *Chart) error) error
}

// KVRepository stores the chart as one JSON document in a kv.Store.
type KVRepository struct {
	store  kv.Store
	locker kv.Locker
	key    string
	now    func() time.Time
}

// NewKVRepository constructs a repository. A nil locker disables cross-process locking.
func NewKVRepository(store kv.Store, locker kv.Locker) *KVRepository {
	if locker == nil {
		locker = kv.NopLocker{}
	}
	return &KVRepository{store: store, locker: locker, key: ChartKey, now: time.Now}
}

// Load implements Repository. A missing document yields the default chart.
func (r *KVRepository) Load(ctx context.Context) (*Chart, error) {
	doc, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("ledger: load chart: %w", err)
	}
	chart := &Chart{}
	if ok && len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, chart); err != nil {
			return nil, fmt.Errorf("ledger: decode chart: %w", err)
		}
	}
	if len(chart.Accounts) == 0 {
		chart.Accounts = DefaultAccounts(r.now().UTC())
	}
	chart.Version = doc.Version
	return chart, nil
}

// WithTx implements Repository.
func (r *KVRepository) WithTx(ctx context.Context, fn func(ctx context.Context, chart *Chart) error) error {
	unlock, err := r.locker.Lock(ctx, r.key)
	if errors.Is(err, kv.ErrLocked) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err != nil {
		return fmt.Errorf("ledger: lock chart: %w", err)
	}
	defer unlock()

	chart, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, chart); err != nil {
		return err
	}
	raw, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("ledger: encode chart: %w", err)
	}
	version, err := r.store.Set(ctx, r.key, raw, chart.Version)
	if errors.Is(err, kv.ErrVersionConflict) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	if err != nil {
		return fmt.Errorf("ledger: save chart: %w", err)
	}
	chart.Version = version
	return nil
}
