package config

import (
	"time"

	"github.com/spf13/viper"
)

// Artifact sources and latent backends.
const (
	ArtifactSourceFile  = "file"
	ArtifactSourceMinIO = "minio"

	BackendDense   = "dense"
	BackendServing = "serving"
)

const (
	DefaultServerHost             = "0.0.0.0"
	DefaultServerPort             = 8080
	DefaultReadTimeout            = 15 * time.Second
	DefaultWriteTimeout           = 60 * time.Second
	DefaultShutdownTimeout        = 15 * time.Second
	DefaultMaxBodySize            = 1 << 20
	DefaultEncodeTimeout          = 30 * time.Second
	DefaultMaxSequencesPerRequest = 100

	DefaultEncodePerMinute  = 60
	DefaultCatalogPerMinute = 30
	DefaultRateBurst        = 10

	DefaultProteinModelPath = "models/protein_encoder.json"
	DefaultAptamerModelPath = "models/aptamer_encoder.json"

	DefaultServingTimeout   = 30 * time.Second
	DefaultServingProtein   = "seqquant_protein"
	DefaultServingAptamer   = "seqquant_aptamer"
	DefaultServingSignature = "serving_default"

	DefaultRedisAddr     = "localhost:6379"
	DefaultRedisPoolSize = 10
	DefaultCacheTTL      = 24 * time.Hour
	DefaultKeyPrefix     = "seqquant:"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultModelsBucket  = "seqquant-models"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "seqquant-encoder"
	DefaultRequestTopic = "seqquant.encode.requests"
	DefaultResultTopic  = "seqquant.encode.results"
	DefaultDLQTopic     = "seqquant.encode.dlq"

	DefaultWorkerConcurrency = 4
	DefaultJobTimeout        = 60 * time.Second
	DefaultWorkerRetries     = 3
	DefaultWorkerHealthPort  = 8081

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "seqquant"
	DefaultMetricsPath      = "/metrics"
)

// registerDefaults seeds v with every known key. Viper only resolves env
// overrides for keys it knows about, so each leaf gets a default here.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.write_timeout", DefaultWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)
	v.SetDefault("server.max_body_size", DefaultMaxBodySize)
	v.SetDefault("server.encode_timeout", DefaultEncodeTimeout)
	v.SetDefault("server.max_sequences_per_request", DefaultMaxSequencesPerRequest)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.encode_per_minute", DefaultEncodePerMinute)
	v.SetDefault("rate_limit.catalog_per_minute", DefaultCatalogPerMinute)
	v.SetDefault("rate_limit.burst", DefaultRateBurst)

	v.SetDefault("artifacts.source", ArtifactSourceFile)
	v.SetDefault("artifacts.scaler_path", "")
	v.SetDefault("artifacts.protein_model_path", DefaultProteinModelPath)
	v.SetDefault("artifacts.aptamer_model_path", DefaultAptamerModelPath)
	v.SetDefault("artifacts.backend", BackendDense)

	v.SetDefault("serving.endpoint", "")
	v.SetDefault("serving.timeout", DefaultServingTimeout)
	v.SetDefault("serving.protein_model", DefaultServingProtein)
	v.SetDefault("serving.aptamer_model", DefaultServingAptamer)
	v.SetDefault("serving.signature_name", DefaultServingSignature)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", DefaultRedisAddr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", DefaultRedisPoolSize)
	v.SetDefault("redis.min_idle_conns", 0)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)
	v.SetDefault("redis.cache_ttl", DefaultCacheTTL)
	v.SetDefault("redis.key_prefix", DefaultKeyPrefix)

	v.SetDefault("minio.endpoint", DefaultMinIOEndpoint)
	v.SetDefault("minio.access_key", "")
	v.SetDefault("minio.secret_key", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.models_bucket", DefaultModelsBucket)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{DefaultKafkaBroker})
	v.SetDefault("kafka.group_id", DefaultKafkaGroupID)
	v.SetDefault("kafka.request_topic", DefaultRequestTopic)
	v.SetDefault("kafka.result_topic", DefaultResultTopic)
	v.SetDefault("kafka.dlq_topic", DefaultDLQTopic)
	v.SetDefault("kafka.auto_offset_reset", "earliest")
	v.SetDefault("kafka.batch_size", 100)

	v.SetDefault("worker.concurrency", DefaultWorkerConcurrency)
	v.SetDefault("worker.job_timeout", DefaultJobTimeout)
	v.SetDefault("worker.max_retries", DefaultWorkerRetries)
	v.SetDefault("worker.health_port", DefaultWorkerHealthPort)

	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", DefaultLogFormat)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", DefaultMetricsNamespace)
	v.SetDefault("metrics.path", DefaultMetricsPath)
}

// ApplyDefaults fills zero-value fields in cfg. Explicit values win. It is
// used for Configs assembled in code, such as in tests and the CLI.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = DefaultMaxBodySize
	}
	if len(cfg.Server.CORSAllowedOrigins) == 0 {
		cfg.Server.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.Server.EncodeTimeout == 0 {
		cfg.Server.EncodeTimeout = DefaultEncodeTimeout
	}
	if cfg.Server.MaxSequencesPerRequest == 0 {
		cfg.Server.MaxSequencesPerRequest = DefaultMaxSequencesPerRequest
	}

	// ── Rate limit ────────────────────────────────────────────────────────────
	if cfg.RateLimit.EncodePerMinute == 0 {
		cfg.RateLimit.EncodePerMinute = DefaultEncodePerMinute
	}
	if cfg.RateLimit.CatalogPerMinute == 0 {
		cfg.RateLimit.CatalogPerMinute = DefaultCatalogPerMinute
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = DefaultRateBurst
	}

	// ── Artifacts / serving ───────────────────────────────────────────────────
	if cfg.Artifacts.Source == "" {
		cfg.Artifacts.Source = ArtifactSourceFile
	}
	if cfg.Artifacts.Backend == "" {
		cfg.Artifacts.Backend = BackendDense
	}
	if cfg.Artifacts.ProteinModelPath == "" {
		cfg.Artifacts.ProteinModelPath = DefaultProteinModelPath
	}
	if cfg.Artifacts.AptamerModelPath == "" {
		cfg.Artifacts.AptamerModelPath = DefaultAptamerModelPath
	}
	if cfg.Serving.Timeout == 0 {
		cfg.Serving.Timeout = DefaultServingTimeout
	}
	if cfg.Serving.ProteinModel == "" {
		cfg.Serving.ProteinModel = DefaultServingProtein
	}
	if cfg.Serving.AptamerModel == "" {
		cfg.Serving.AptamerModel = DefaultServingAptamer
	}
	if cfg.Serving.SignatureName == "" {
		cfg.Serving.SignatureName = DefaultServingSignature
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = DefaultRedisPoolSize
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = DefaultCacheTTL
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultKeyPrefix
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.ModelsBucket == "" {
		cfg.MinIO.ModelsBucket = DefaultModelsBucket
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.RequestTopic == "" {
		cfg.Kafka.RequestTopic = DefaultRequestTopic
	}
	if cfg.Kafka.ResultTopic == "" {
		cfg.Kafka.ResultTopic = DefaultResultTopic
	}
	if cfg.Kafka.DLQTopic == "" {
		cfg.Kafka.DLQTopic = DefaultDLQTopic
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.JobTimeout == 0 {
		cfg.Worker.JobTimeout = DefaultJobTimeout
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = DefaultWorkerRetries
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultWorkerHealthPort
	}

	// ── Log / metrics ─────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}

// Default returns a Config holding only defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.RateLimit.Enabled = true
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}
