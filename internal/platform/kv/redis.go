package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

const keyNamespace = "freightdesk"

type envelope struct {
	Version int64           `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Redis stores documents as versioned envelopes and uses WATCH/MULTI for compare-and-set.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// DocumentKey namespaces a dataset key.
func DocumentKey(key string) string {
	return fmt.Sprintf("%s:doc:%s", keyNamespace, key)
}

// LockKey builds the redis key guarding writes to a dataset.
func LockKey(key string) string {
	return fmt.Sprintf("%s:doc:%s:lock", keyNamespace, key)
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (Document, bool, error) {
	env, ok, err := readEnvelope(ctx, r.client, DocumentKey(key))
	if err != nil || !ok {
		return Document{}, ok, err
	}
	return Document{Data: env.Data, Version: env.Version}, true, nil
}

// Set implements Store.
func (r *Redis) Set(ctx context.Context, key string, data json.RawMessage, expected int64) (int64, error) {
	fullKey := DocumentKey(key)
	next := envelope{Version: expected + 1, Data: data}
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, _, err := readEnvelope(ctx, tx, fullKey)
		if err != nil {
			return err
		}
		if current.Version != expected {
			return ErrVersionConflict
		}
		raw, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("kv: encode envelope: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, fullKey, raw, 0)
			return nil
		})
		return err
	}, fullKey)
	if errors.Is(err, redis.TxFailedErr) {
		return 0, ErrVersionConflict
	}
	if err != nil {
		return 0, err
	}
	return next.Version, nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readEnvelope(ctx context.Context, client getter, key string) (envelope, bool, error) {
	raw, err := client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return envelope{}, false, nil
	}
	if err != nil {
		return envelope{}, false, fmt.Errorf("kv: get %s: %w", key, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, false, fmt.Errorf("kv: decode %s: %w", key, err)
	}
	return env, true, nil
}

// RedisLocker obtains short-lived redis locks around dataset writes.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

// NewRedisLocker constructs a locker backed by redislock.
func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(client),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	}
}

// Lock implements Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	lock, err := l.client.Obtain(ctx, LockKey(key), l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("kv: obtain lock: %w", err)
	}
	return func() {
		_ = lock.Release(context.Background())
	}, nil
}
