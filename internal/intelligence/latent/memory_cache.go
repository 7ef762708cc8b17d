package latent

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache is a bounded in-process VectorCache used when no shared cache
// is configured.
type MemoryCache struct {
	lru *lru.Cache[string, []float32]
}

// NewMemoryCache returns a cache holding at most size vectors.
func NewMemoryCache(size int) (*MemoryCache, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{lru: c}, nil
}

func (m *MemoryCache) GetVectors(_ context.Context, keys []string) (map[string][]float32, error) {
	out := make(map[string][]float32, len(keys))
	for _, k := range keys {
		if v, ok := m.lru.Get(k); ok {
			out[k] = append([]float32(nil), v...)
		}
	}
	return out, nil
}

func (m *MemoryCache) SetVectors(_ context.Context, entries map[string][]float32) error {
	for k, v := range entries {
		m.lru.Add(k, append([]float32(nil), v...))
	}
	return nil
}

// Len returns the number of cached vectors.
func (m *MemoryCache) Len() int { return m.lru.Len() }
