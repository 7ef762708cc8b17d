package latent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
)

// VectorCache stores latent vectors by key. A missing key is simply absent
// from the GetVectors result.
type VectorCache interface {
	GetVectors(ctx context.Context, keys []string) (map[string][]float32, error)
	SetVectors(ctx context.Context, entries map[string][]float32) error
}

// CacheObserver receives per-call hit and miss counts.
type CacheObserver func(hits, misses int)

// CachingEncoder serves repeated tensors from a VectorCache and only sends
// misses to the wrapped encoder. Cache failures degrade to misses.
type CachingEncoder struct {
	inner    Encoder
	cache    VectorCache
	logger   logging.Logger
	observer CacheObserver
}

// CacheOption configures a CachingEncoder.
type CacheOption func(*CachingEncoder)

func WithCacheLogger(l logging.Logger) CacheOption {
	return func(c *CachingEncoder) { c.logger = logging.OrNop(l) }
}

func WithCacheObserver(o CacheObserver) CacheOption {
	return func(c *CachingEncoder) { c.observer = o }
}

// NewCachingEncoder decorates inner with cache.
func NewCachingEncoder(inner Encoder, cache VectorCache, opts ...CacheOption) *CachingEncoder {
	c := &CachingEncoder{inner: inner, cache: cache, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey identifies the latent vector of m under the named encoder.
func CacheKey(encoder string, m polymer.Matrix) string {
	sum := sha256.Sum256(m.Bytes())
	return "latent:" + encoder + ":" + hex.EncodeToString(sum[:])
}

func (c *CachingEncoder) Name() string { return c.inner.Name() }

func (c *CachingEncoder) Close() error { return c.inner.Close() }

func (c *CachingEncoder) Infer(ctx context.Context, batch polymer.BatchTensor) ([][]float32, error) {
	if batch.Len() == 0 {
		return nil, emptyBatchError(c.Name())
	}
	keys := make([]string, batch.Len())
	for i, m := range batch.Items {
		keys[i] = CacheKey(c.inner.Name(), m)
	}

	cached, err := c.cache.GetVectors(ctx, keys)
	if err != nil {
		c.logger.Warn("latent cache lookup failed", logging.Err(err))
		cached = nil
	}

	out := make([][]float32, batch.Len())
	var missIdx []int
	for i, k := range keys {
		if v, ok := cached[k]; ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
	}
	if c.observer != nil {
		c.observer(batch.Len()-len(missIdx), len(missIdx))
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	fresh, err := c.inner.Infer(ctx, batch.Subset(missIdx))
	if err != nil {
		return nil, err
	}
	if err := checkOutputRows(c.Name(), len(missIdx), len(fresh)); err != nil {
		return nil, err
	}

	entries := make(map[string][]float32, len(missIdx))
	for j, i := range missIdx {
		out[i] = fresh[j]
		entries[keys[i]] = fresh[j]
	}
	if err := c.cache.SetVectors(ctx, entries); err != nil {
		c.logger.Warn("latent cache write failed", logging.Err(err))
	}
	return out, nil
}
