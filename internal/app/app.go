// Package app assembles the encoding service and its infrastructure from
// configuration. The API server, the worker and the CLI share it.
package app

import (
	"context"
	stderrors "errors"

	"github.com/turtacn/SeqQuant/internal/application/encoding"
	"github.com/turtacn/SeqQuant/internal/config"
	"github.com/turtacn/SeqQuant/internal/domain/polymer"
	"github.com/turtacn/SeqQuant/internal/infrastructure/database/redis"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SeqQuant/internal/infrastructure/storage/artifacts"
	"github.com/turtacn/SeqQuant/internal/infrastructure/storage/minio"
	"github.com/turtacn/SeqQuant/internal/intelligence/latent"
	"github.com/turtacn/SeqQuant/pkg/errors"
)

// MemoryCacheSize bounds the in-process latent cache used when redis is
// disabled.
const MemoryCacheSize = 10000

// Components holds everything built from one Config. Close releases it.
type Components struct {
	Config *config.Config
	Logger logging.Logger

	// Collector and Metrics are nil when metrics are disabled.
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.SeqQuantMetrics

	// Redis and VectorCache are nil when redis is disabled.
	Redis       *redis.Client
	VectorCache *redis.VectorCache

	// MinIO and Artifacts are nil unless artifacts.source is minio.
	MinIO     *minio.MinIOClient
	Artifacts *minio.ArtifactStore

	Source     artifacts.Source
	Dispatcher *latent.Dispatcher
	Service    encoding.Service

	closers []func() error
}

// Option adjusts Build.
type Option func(*buildOptions)

type buildOptions struct {
	withoutCache   bool
	withoutMetrics bool
	source         artifacts.Source
}

// WithoutCache disables the latent vector cache entirely.
func WithoutCache() Option { return func(o *buildOptions) { o.withoutCache = true } }

// WithoutMetrics skips metric registration regardless of configuration.
func WithoutMetrics() Option { return func(o *buildOptions) { o.withoutMetrics = true } }

// WithSource overrides the configured artifact source.
func WithSource(src artifacts.Source) Option { return func(o *buildOptions) { o.source = src } }

// Build wires the encoding service from cfg. Encoders are loaded lazily on
// first use; only the scaler is read eagerly.
func Build(ctx context.Context, cfg *config.Config, logger logging.Logger, opts ...Option) (*Components, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger = logging.OrNop(logger)
	c := &Components{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled && !o.withoutMetrics {
		collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			EnableProcessMetrics: true,
			EnableGoMetrics:      true,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "metrics registry")
		}
		c.Collector = collector
		c.Metrics = prometheus.NewSeqQuantMetrics(collector)
	}

	if err := c.buildSource(ctx, o.source); err != nil {
		c.Close()
		return nil, err
	}

	scaler, err := artifacts.LoadScaler(ctx, c.Source, cfg.Artifacts.ScalerPath)
	if err != nil {
		c.Close()
		return nil, err
	}

	protein, aptamer, err := c.buildHandles()
	if err != nil {
		c.Close()
		return nil, err
	}

	if !o.withoutCache {
		cache, err := c.buildCache()
		if err != nil {
			c.Close()
			return nil, err
		}
		cacheOpts := []latent.CacheOption{latent.WithCacheLogger(logger)}
		if c.Metrics != nil {
			cacheOpts = append(cacheOpts, latent.WithCacheObserver(c.Metrics.ObserveCache))
		}
		decorate := func(e latent.Encoder) latent.Encoder {
			return latent.NewCachingEncoder(e, cache, cacheOpts...)
		}
		protein = protein.Decorate(decorate)
		aptamer = aptamer.Decorate(decorate)
	}

	c.Dispatcher = latent.NewDispatcher(protein, aptamer)
	c.closers = append(c.closers, c.Dispatcher.Close)

	svcCfg := encoding.ServiceConfig{
		Dispatcher:             c.Dispatcher,
		Scaler:                 scaler,
		Logger:                 logger,
		MaxSequencesPerRequest: cfg.Server.MaxSequencesPerRequest,
		EncodeTimeout:          cfg.Server.EncodeTimeout,
	}
	if c.Metrics != nil {
		svcCfg.Metrics = c.Metrics
	}
	svc, err := encoding.NewService(svcCfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Service = svc

	logger.Info("encoding service assembled",
		logging.String("artifact_source", cfg.Artifacts.Source),
		logging.String("backend", cfg.Artifacts.Backend),
		logging.Bool("redis", c.Redis != nil),
		logging.Bool("metrics", c.Metrics != nil))
	return c, nil
}

func (c *Components) buildSource(ctx context.Context, override artifacts.Source) error {
	if override != nil {
		c.Source = override
		return nil
	}
	switch c.Config.Artifacts.Source {
	case config.ArtifactSourceMinIO:
		client, err := minio.NewMinIOClient(ctx, c.Config.MinIO, c.Logger)
		if err != nil {
			return err
		}
		c.MinIO = client
		c.closers = append(c.closers, client.Close)
		c.Artifacts = minio.NewArtifactStore(client, c.Logger)
		c.Source = c.Artifacts
	default:
		c.Source = artifacts.FileSource{}
	}
	return nil
}

func (c *Components) buildHandles() (*latent.Handle, *latent.Handle, error) {
	a := c.Config.Artifacts
	switch a.Backend {
	case config.BackendServing:
		s := c.Config.Serving
		return latent.NewHandle(string(polymer.StrategyProtein), c.servingLoader(s, s.ProteinModel)),
			latent.NewHandle(string(polymer.StrategyAptamer), c.servingLoader(s, s.AptamerModel)),
			nil
	case config.BackendDense, "":
		return latent.NewHandle(string(polymer.StrategyProtein), artifacts.DenseLoader(c.Source, a.ProteinModelPath)),
			latent.NewHandle(string(polymer.StrategyAptamer), artifacts.DenseLoader(c.Source, a.AptamerModelPath)),
			nil
	}
	return nil, nil, errors.New(errors.ErrCodeValidation, "unknown latent backend").WithDetail(a.Backend)
}

func (c *Components) servingLoader(s config.ServingConfig, model string) latent.Loader {
	return func(context.Context) (latent.Encoder, error) {
		return latent.NewServingEncoder(latent.ServingConfig{
			Endpoint:      s.Endpoint,
			Model:         model,
			SignatureName: s.SignatureName,
			Timeout:       s.Timeout,
		}, c.Logger)
	}
}

func (c *Components) buildCache() (latent.VectorCache, error) {
	if !c.Config.Redis.Enabled {
		return latent.NewMemoryCache(MemoryCacheSize)
	}
	client, err := redis.NewClient(c.Config.Redis, c.Logger)
	if err != nil {
		return nil, err
	}
	c.Redis = client
	c.closers = append(c.closers, client.Close)

	cache := redis.NewRedisCache(client, c.Logger, redis.WithPrefix(c.Config.Redis.KeyPrefix))
	c.VectorCache = redis.NewVectorCache(cache, c.Config.Redis.CacheTTL, c.Logger)
	return c.VectorCache, nil
}

// Ready loads both encoders and pings redis. It also refreshes the
// encoder_loaded gauge.
func (c *Components) Ready(ctx context.Context) error {
	err := c.Service.Ready(ctx)
	if c.Metrics != nil {
		for _, s := range []polymer.EncodingStrategy{polymer.StrategyProtein, polymer.StrategyAptamer} {
			_, selErr := c.Dispatcher.Select(ctx, s)
			c.Metrics.SetEncoderLoaded(string(s), selErr == nil)
		}
	}
	return err
}

// Checks returns the named readiness probes for the configured components.
func (c *Components) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"encoder": c.Ready,
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis.Ping
	}
	if c.MinIO != nil {
		checks["minio"] = c.MinIO.HealthCheck
	}
	return checks
}

// Close releases every component in reverse construction order.
func (c *Components) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	if err := stderrors.Join(errs...); err != nil {
		c.Logger.Warn("component shutdown reported errors", logging.Err(err))
		return err
	}
	return nil
}
