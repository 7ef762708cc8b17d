// Package config defines the configuration structures for SeqQuant. No I/O
// lives here, only plain data types and validation.
package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/turtacn/SeqQuant/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`

	// EncodeTimeout bounds a single encode request including inference.
	EncodeTimeout time.Duration `mapstructure:"encode_timeout"`

	// MaxSequencesPerRequest caps the comma-separated sequence list.
	MaxSequencesPerRequest int `mapstructure:"max_sequences_per_request"`

	// CORSAllowedOrigins lists browser origins; "*" allows any.
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`

	// TrustedProxies lists proxy IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers identify the client. Empty trusts no one.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RateLimitConfig holds per-client-IP request budgets.
type RateLimitConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	EncodePerMinute  int  `mapstructure:"encode_per_minute"`
	CatalogPerMinute int  `mapstructure:"catalog_per_minute"`
	Burst            int  `mapstructure:"burst"`
}

// ArtifactsConfig locates the descriptor scaler and encoder weights.
type ArtifactsConfig struct {
	// Source is "file" (paths are local) or "minio" (paths are object keys in
	// the models bucket).
	Source string `mapstructure:"source"`

	// ScalerPath is the fitted descriptor scaler. Empty selects the reference
	// scaler fitted over the compiled-in catalog.
	ScalerPath string `mapstructure:"scaler_path"`

	ProteinModelPath string `mapstructure:"protein_model_path"`
	AptamerModelPath string `mapstructure:"aptamer_model_path"`

	// Backend is "dense" (in-process weights) or "serving" (TF Serving REST).
	Backend string `mapstructure:"backend"`
}

// ServingConfig holds TensorFlow Serving REST parameters.
type ServingConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	Timeout       time.Duration `mapstructure:"timeout"`
	ProteinModel  string        `mapstructure:"protein_model"`
	AptamerModel  string        `mapstructure:"aptamer_model"`
	SignatureName string        `mapstructure:"signature_name"`
}

// RedisConfig holds latent cache connection parameters.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// MinIOConfig holds S3-compatible artifact storage parameters.
type MinIOConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	Region       string `mapstructure:"region"`
	ModelsBucket string `mapstructure:"models_bucket"`
}

// KafkaConfig holds encode-job worker topics and broker addresses.
type KafkaConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	RequestTopic    string   `mapstructure:"request_topic"`
	ResultTopic     string   `mapstructure:"result_topic"`
	DLQTopic        string   `mapstructure:"dlq_topic"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	BatchSize       int      `mapstructure:"batch_size"`
}

// WorkerConfig holds encode-job execution parameters.
type WorkerConfig struct {
	Concurrency int           `mapstructure:"concurrency"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	// MaxRetries bounds redelivery of a transient failure before the
	// message is dead-lettered.
	MaxRetries int `mapstructure:"max_retries"`
	// HealthPort serves /healthz, /readyz and /metrics for the worker.
	HealthPort int `mapstructure:"health_port"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Path      string `mapstructure:"path"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure shared by the API server, the
// worker and the CLI.
type Config struct {
	Server    ServerConfig      `mapstructure:"server"`
	RateLimit RateLimitConfig   `mapstructure:"rate_limit"`
	Artifacts ArtifactsConfig   `mapstructure:"artifacts"`
	Serving   ServingConfig     `mapstructure:"serving"`
	Redis     RedisConfig       `mapstructure:"redis"`
	MinIO     MinIOConfig       `mapstructure:"minio"`
	Kafka     KafkaConfig       `mapstructure:"kafka"`
	Worker    WorkerConfig      `mapstructure:"worker"`
	Log       logging.LogConfig `mapstructure:"log"`
	Metrics   MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of a fully-populated Config and
// returns the first error found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.MaxSequencesPerRequest < 1 {
		return fmt.Errorf("config: server.max_sequences_per_request must be ≥ 1, got %d", c.Server.MaxSequencesPerRequest)
	}
	if c.Server.EncodeTimeout <= 0 {
		return fmt.Errorf("config: server.encode_timeout must be positive")
	}

	for _, p := range c.Server.TrustedProxies {
		if !validProxyEntry(p) {
			return fmt.Errorf("config: server.trusted_proxies entry %q is not an IP or CIDR", p)
		}
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.EncodePerMinute < 1 || c.RateLimit.CatalogPerMinute < 1 {
			return fmt.Errorf("config: rate_limit budgets must be ≥ 1 per minute")
		}
	}

	switch c.Artifacts.Source {
	case ArtifactSourceFile, ArtifactSourceMinIO:
	default:
		return fmt.Errorf("config: artifacts.source %q is invalid; expected file|minio", c.Artifacts.Source)
	}
	switch c.Artifacts.Backend {
	case BackendDense:
	case BackendServing:
		if c.Serving.Endpoint == "" {
			return fmt.Errorf("config: serving.endpoint is required for the serving backend")
		}
	default:
		return fmt.Errorf("config: artifacts.backend %q is invalid; expected dense|serving", c.Artifacts.Backend)
	}

	if c.Artifacts.Source == ArtifactSourceMinIO && c.MinIO.Endpoint == "" {
		return fmt.Errorf("config: minio.endpoint is required when artifacts.source is minio")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("config: kafka.group_id is required")
		}
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}
	if c.Worker.HealthPort < 1 || c.Worker.HealthPort > 65535 {
		return fmt.Errorf("config: worker.health_port %d is out of range [1, 65535]", c.Worker.HealthPort)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required")
	}
	return nil
}

func validProxyEntry(p string) bool {
	p = strings.TrimSpace(p)
	if strings.Contains(p, "/") {
		_, err := netip.ParsePrefix(p)
		return err == nil
	}
	_, err := netip.ParseAddr(p)
	return err == nil
}
