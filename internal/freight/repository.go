package freight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

// DatasetKey is the default kv key holding the workflow dataset.
const DatasetKey = "freightData"

// Repository loads and saves the workflow dataset as a whole.
type Repository interface {
	Load(ctx context.Context) (*Dataset, error)
	// WithTx loads the dataset, passes it to fn and saves it when fn returns nil.
	// The save fails with a conflict Failure if another writer saved in between.
	WithTx(ctx context.Context, fn func(ctx context.Context, data *Dataset) error) error
}

// KVRepository stores the dataset as one JSON document in a kv.Store.
type KVRepository struct {
	store  kv.Store
	locker kv.Locker
	key    string
}

// NewKVRepository constructs a repository. A nil locker disables cross-process locking.
func NewKVRepository(store kv.Store, locker kv.Locker, key string) *KVRepository {
	if locker == nil {
		locker = kv.NopLocker{}
	}
	if key == "" {
		key = DatasetKey
	}
	return &KVRepository{store: store, locker: locker, key: key}
}

// Load implements Repository. A missing key yields an empty dataset.
func (r *KVRepository) Load(ctx context.Context) (*Dataset, error) {
	doc, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("freight: load dataset: %w", err)
	}
	data := &Dataset{}
	if ok && len(doc.Data) > 0 {
		if err := json.Unmarshal(doc.Data, data); err != nil {
			return nil, fmt.Errorf("freight: decode dataset: %w", err)
		}
	}
	if data.Counters == nil {
		data.Counters = make(map[string]int)
	}
	data.Version = doc.Version
	return data, nil
}

// WithTx implements Repository.
func (r *KVRepository) WithTx(ctx context.Context, fn func(ctx context.Context, data *Dataset) error) error {
	unlock, err := r.locker.Lock(ctx, r.key)
	if errors.Is(err, kv.ErrLocked) {
		return conflict("dataset", r.key, err)
	}
	if err != nil {
		return fmt.Errorf("freight: lock dataset: %w", err)
	}
	defer unlock()

	data, err := r.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, data); err != nil {
		return err
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("freight: encode dataset: %w", err)
	}
	version, err := r.store.Set(ctx, r.key, raw, data.Version)
	if errors.Is(err, kv.ErrVersionConflict) {
		return conflict("dataset", r.key, err)
	}
	if err != nil {
		return fmt.Errorf("freight: save dataset: %w", err)
	}
	data.Version = version
	return nil
}
