package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
)

// VectorCache stores latent vectors as JSON arrays in a Cache. It satisfies
// latent.VectorCache.
type VectorCache struct {
	cache  Cache
	ttl    time.Duration
	logger logging.Logger
}

// NewVectorCache returns a VectorCache writing entries with ttl.
func NewVectorCache(cache Cache, ttl time.Duration, log logging.Logger) *VectorCache {
	return &VectorCache{cache: cache, ttl: ttl, logger: logging.OrNop(log)}
}

func (v *VectorCache) GetVectors(ctx context.Context, keys []string) (map[string][]float32, error) {
	raw, err := v.cache.MGet(ctx, keys)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32, len(raw))
	for k, data := range raw {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err != nil {
			v.logger.Warn("Dropping undecodable cached vector", logging.String("key", k), logging.Err(err))
			continue
		}
		out[k] = vec
	}
	return out, nil
}

func (v *VectorCache) SetVectors(ctx context.Context, entries map[string][]float32) error {
	items := make(map[string]interface{}, len(entries))
	for k, vec := range entries {
		items[k] = vec
	}
	return v.cache.MSet(ctx, items, v.ttl)
}

// Purge removes every cached latent vector.
func (v *VectorCache) Purge(ctx context.Context) (int64, error) {
	return v.cache.DeleteByPrefix(ctx, "latent:")
}
