package latent

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"

	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// Loader constructs an encoder, typically by reading an artifact.
type Loader func(ctx context.Context) (Encoder, error)

// Handle lazily loads an encoder once and shares it between callers.
// Permanent load failures (missing or invalid artifacts) are remembered and
// returned to every later caller. Cancellation, timeouts and storage
// outages are not remembered, so the next caller loads again.
type Handle struct {
	name   string
	load   Loader
	mu     sync.Mutex
	enc    Encoder
	err    error
	loaded atomic.Bool
}

// NewHandle returns a handle that runs load on first use.
func NewHandle(name string, load Loader) *Handle {
	return &Handle{name: name, load: load}
}

// StaticHandle wraps an already constructed encoder.
func StaticHandle(enc Encoder) *Handle {
	h := &Handle{name: enc.Name(), enc: enc}
	h.loaded.Store(true)
	return h
}

// Get returns the shared encoder, loading it on the first call.
func (h *Handle) Get(ctx context.Context) (Encoder, error) {
	if h.loaded.Load() {
		return h.enc, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.loaded.Load() {
		return h.enc, nil
	}
	if h.err != nil {
		return nil, h.err
	}

	enc, err := h.load(ctx)
	if err != nil {
		wrapped := errors.Wrap(err, errors.ErrCodeEncoderNotLoaded, "load latent encoder").WithDetail(h.name)
		if !retryableLoadError(ctx, err) {
			h.err = wrapped
		}
		return nil, wrapped
	}
	h.enc = enc
	h.loaded.Store(true)
	return enc, nil
}

// retryableLoadError reports whether a failed load may succeed later.
func retryableLoadError(ctx context.Context, err error) bool {
	if ctx.Err() != nil || stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	// Decorated handles see the inner handle's SEQ_011 first, so look at
	// the whole chain.
	for _, code := range []errors.ErrorCode{
		errors.ErrCodeTimeout, errors.ErrCodeServiceUnavailable,
		errors.ErrCodeStorageError, errors.ErrCodeExternalService,
	} {
		if errors.IsCode(err, code) {
			return true
		}
	}
	return false
}

// Loaded reports whether the encoder has been loaded successfully.
func (h *Handle) Loaded() bool { return h.loaded.Load() }

// Name returns the handle's label.
func (h *Handle) Name() string { return h.name }

// Close releases the encoder if it was loaded.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.loaded.Load() {
		return nil
	}
	return h.enc.Close()
}

// Decorate wraps the encoder produced by h, so the decoration is applied
// once at load time.
func (h *Handle) Decorate(wrap func(Encoder) Encoder) *Handle {
	return NewHandle(h.name, func(ctx context.Context) (Encoder, error) {
		enc, err := h.Get(ctx)
		if err != nil {
			return nil, err
		}
		return wrap(enc), nil
	})
}

// Dispatcher maps an encoding strategy to its encoder handle.
type Dispatcher struct {
	handles map[polymer.EncodingStrategy]*Handle
}

// NewDispatcher wires the two fixed encoders.
func NewDispatcher(protein, aptamer *Handle) *Dispatcher {
	return &Dispatcher{handles: map[polymer.EncodingStrategy]*Handle{
		polymer.StrategyProtein: protein,
		polymer.StrategyAptamer: aptamer,
	}}
}

// Select returns the encoder for strategy, loading it if needed.
func (d *Dispatcher) Select(ctx context.Context, strategy polymer.EncodingStrategy) (Encoder, error) {
	h, ok := d.handles[strategy]
	if !ok || h == nil {
		return nil, errors.New(errors.ErrCodeUnknownStrategy, "unknown encoding strategy").WithDetail(string(strategy))
	}
	return h.Get(ctx)
}

// Ready loads every encoder and returns the first failure.
func (d *Dispatcher) Ready(ctx context.Context) error {
	for _, s := range []polymer.EncodingStrategy{polymer.StrategyProtein, polymer.StrategyAptamer} {
		if _, err := d.Select(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every loaded encoder.
func (d *Dispatcher) Close() error {
	var first error
	for _, h := range d.handles {
		if h == nil {
			continue
		}
		if err := h.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
