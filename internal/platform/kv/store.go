// Package kv provides the document stores that hold whole JSON datasets by key.
package kv

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrVersionConflict indicates the stored document changed since it was read.
	ErrVersionConflict = errors.New("kv: version conflict")
	// ErrLocked indicates the write lock for a key could not be obtained.
	ErrLocked = errors.New("kv: key locked by another writer")
)

// Document is a stored JSON value together with the version it was read at.
// A missing key reads as an empty document with version 0.
type Document struct {
	Data    json.RawMessage
	Version int64
}

// Store reads and writes JSON documents by key.
//
// Set succeeds only when expected matches the current version and returns the
// version assigned to the new value.
type Store interface {
	Get(ctx context.Context, key string) (Document, bool, error)
	Set(ctx context.Context, key string, data json.RawMessage, expected int64) (int64, error)
}

// Locker serialises read-modify-write cycles across processes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// NopLocker is used when a single process owns the store.
type NopLocker struct{}

// Lock implements Locker.
func (NopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
