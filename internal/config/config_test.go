package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_Default(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestValidate_Failures(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"cap", func(c *Config) { c.Server.MaxSequencesPerRequest = -1 }, "max_sequences_per_request"},
		{"encode timeout", func(c *Config) { c.Server.EncodeTimeout = -1 }, "encode_timeout"},
		{"rate", func(c *Config) { c.RateLimit.EncodePerMinute = -5 }, "rate_limit"},
		{"source", func(c *Config) { c.Artifacts.Source = "s3" }, "artifacts.source"},
		{"backend", func(c *Config) { c.Artifacts.Backend = "onnx" }, "artifacts.backend"},
		{"serving endpoint", func(c *Config) { c.Artifacts.Backend = BackendServing }, "serving.endpoint"},
		{"minio endpoint", func(c *Config) {
			c.Artifacts.Source = ArtifactSourceMinIO
			c.MinIO.Endpoint = ""
		}, "minio.endpoint"},
		{"redis addr", func(c *Config) {
			c.Redis.Enabled = true
			c.Redis.Addr = ""
		}, "redis.addr"},
		{"redis db", func(c *Config) { c.Redis.DB = -1 }, "redis.db"},
		{"kafka brokers", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.Brokers = nil
		}, "kafka.brokers"},
		{"kafka group", func(c *Config) {
			c.Kafka.Enabled = true
			c.Kafka.GroupID = ""
		}, "kafka.group_id"},
		{"worker", func(c *Config) { c.Worker.Concurrency = 0 }, "worker.concurrency"},
		{"worker health port", func(c *Config) { c.Worker.HealthPort = 70000 }, "worker.health_port"},
		{"trusted proxy", func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/8", "lb.internal"} }, "server.trusted_proxies"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "text" }, "log.format"},
		{"metrics namespace", func(c *Config) { c.Metrics.Namespace = "" }, "metrics.namespace"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestValidate_ServingBackendWithEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Artifacts.Backend = BackendServing
	cfg.Serving.Endpoint = "http://tf-serving:8501"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_DisabledSectionsAreNotChecked(t *testing.T) {
	cfg := Default()
	cfg.Kafka.Brokers = nil
	cfg.Redis.Addr = ""
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TrustedProxies(t *testing.T) {
	cfg := Default()
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.10", "::1"}
	assert.NoError(t, cfg.Validate())
}
