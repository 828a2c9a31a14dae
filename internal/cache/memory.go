package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var _ Cache = (*Memory)(nil)

// Memory is a process local cache. Values are kept JSON encoded so callers
// never share mutable state through it.
type Memory struct {
	items *gocache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{items: gocache.New(ttl, 2*ttl)}
}

func (m *Memory) Get(_ context.Context, key string, v any) (bool, error) {
	raw, ok := m.items.Get(key)
	if !ok {
		return false, nil
	}
	data, ok := raw.([]byte)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.items.Set(key, data, ttl)
	return nil
}

func (m *Memory) Flush(_ context.Context) error {
	m.items.Flush()
	return nil
}
