package kv

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps documents in process memory.
type Memory struct {
	mu   sync.Mutex
	docs map[string]Document
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]Document)}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (Document, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[key]
	if !ok {
		return Document{}, false, nil
	}
	return Document{Data: append(json.RawMessage(nil), doc.Data...), Version: doc.Version}, true, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, data json.RawMessage, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := m.docs[key]
	if current.Version != expected {
		return current.Version, ErrVersionConflict
	}
	next := Document{Data: append(json.RawMessage(nil), data...), Version: expected + 1}
	m.docs[key] = next
	return next.Version, nil
}
