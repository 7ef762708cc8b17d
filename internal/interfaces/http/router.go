package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/SeqQuant/internal/config"
	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SeqQuant/internal/interfaces/http/handlers"
	"github.com/turtacn/SeqQuant/internal/interfaces/http/middleware"
)

// limiterIdleTTL is how long a client key may stay silent before its bucket
// is dropped.
const limiterIdleTTL = 10 * time.Minute

// RouterMetrics is the metrics sink used by the router.
type RouterMetrics interface {
	middleware.HTTPMetrics
	RecordRateLimited(route string)
}

// RouterConfig aggregates all handler and middleware dependencies required
// to construct the HTTP route tree.
type RouterConfig struct {
	EncodeHandler *handlers.EncodeHandler
	HealthHandler *handlers.HealthHandler

	Logger         logging.Logger
	Metrics        RouterMetrics
	MetricsHandler http.Handler
	MetricsPath    string

	RateLimit   config.RateLimitConfig
	CORSOrigins []string
	// TrustedProxies are the peers allowed to name the client through
	// forwarding headers. Rate limits key on the resolved client IP.
	TrustedProxies []string
}

// Router is the SeqQuant route tree. Close releases the rate limiters.
type Router struct {
	chi.Router
	limiters []*middleware.KeyedLimiter
	clientIP func(r *http.Request) string
}

// NewRouter constructs the route tree from the given configuration.
//
//	POST /encode_sequence               encode budget
//	GET  /monomers/{polymer_type}       catalog budget
//	POST /kernel_info/{polymer_type}    catalog budget
//	GET  /descriptors                   catalog budget
//	GET  /healthz, /readyz, /metrics    unlimited
func NewRouter(cfg RouterConfig) *Router {
	logger := logging.OrNop(cfg.Logger)
	rt := &Router{Router: chi.NewRouter(), clientIP: middleware.ClientIP}
	r := rt.Router

	if len(cfg.TrustedProxies) > 0 {
		proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
		if err != nil {
			logger.Warn("ignoring trusted proxies", logging.Err(err))
		} else {
			rt.clientIP = proxies.ClientIP
		}
	}

	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))
	r.Use(middleware.RequestLogging(logger, middleware.DefaultLoggingConfig()))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = config.DefaultMetricsPath
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	h := cfg.EncodeHandler
	if h == nil {
		return rt
	}

	r.Group(func(enc chi.Router) {
		if cfg.RateLimit.Enabled {
			enc.Use(rt.limit("encode", cfg.RateLimit.EncodePerMinute, cfg.RateLimit.Burst, cfg.Metrics))
		}
		enc.Post("/encode_sequence", h.Encode)
	})

	r.Group(func(cat chi.Router) {
		if cfg.RateLimit.Enabled {
			cat.Use(rt.limit("catalog", cfg.RateLimit.CatalogPerMinute, cfg.RateLimit.Burst, cfg.Metrics))
		}
		cat.Get("/monomers/{polymer_type}", h.Monomers)
		cat.Post("/kernel_info/{polymer_type}", h.KernelInfo)
		cat.Get("/descriptors", h.Descriptors)
	})

	return rt
}

func (rt *Router) limit(name string, perMinute, burst int, m RouterMetrics) func(http.Handler) http.Handler {
	limiter := middleware.NewKeyedLimiter(perMinute, burst, limiterIdleTTL)
	rt.limiters = append(rt.limiters, limiter)

	rlc := middleware.RateLimitConfig{Name: name, KeyFunc: rt.clientIP}
	if m != nil {
		rlc.OnLimited = func(name string, _ *http.Request) { m.RecordRateLimited(name) }
	}
	return middleware.RateLimit(limiter, rlc)
}

// Close stops the background eviction of every rate limiter.
func (rt *Router) Close() {
	for _, l := range rt.limiters {
		l.Stop()
	}
}
