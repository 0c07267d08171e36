package config

import (
	"os"
	"time"
)

// Default values for configuration fields.
const (
	// Policy document defaults
	DefaultPangeaDomain = "aws.us.pangea.cloud"
	DefaultLogLevel     = "warn"

	// Proxy defaults
	DefaultListenAddress   = "127.0.0.1:4000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 600 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576  // 1MB
	DefaultMaxBodyBytes    = 10485760 // 10MB

	// Upstream defaults
	DefaultUpstreamBaseURL = "https://api.openai.com"
	DefaultUpstreamTimeout = 600 * time.Second

	// Guard defaults
	DefaultGuardService = "ai-guard"
	DefaultGuardTimeout = 10 * time.Second

	// Telemetry defaults
	DefaultLogFormat          = "json"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "aiguard"
	DefaultTracingServiceName = "aiguard"
	DefaultTracingSampleRatio = 1.0

	// Audit defaults
	DefaultAuditBackend       = "sqlite"
	DefaultAuditPath          = "data/aiguard-audit.db"
	DefaultAuditAsyncBuffer   = 1000
	DefaultAuditWriteTimeout  = 5 * time.Second
	DefaultAuditPruneSchedule = "0 3 * * *"
)

// ApplyDefaults fills every unset field with its default value.
// Explicitly set values are left untouched.
func ApplyDefaults(cfg *Config) {
	if cfg.PangeaDomain == "" {
		cfg.PangeaDomain = DefaultPangeaDomain
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = os.Getenv("PANGEA_LOG_LEVEL")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	applyProxyDefaults(&cfg.Proxy)
	applyUpstreamDefaults(&cfg.Upstream)
	applyGuardDefaults(&cfg.Guard)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyAuditDefaults(&cfg.Audit)
}

func applyProxyDefaults(cfg *ProxyConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
}

func applyUpstreamDefaults(cfg *UpstreamConfig) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultUpstreamBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultUpstreamTimeout
	}
}

func applyGuardDefaults(cfg *GuardConfig) {
	if cfg.Service == "" {
		cfg.Service = DefaultGuardService
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultGuardTimeout
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultAuditBackend
	}
	if cfg.Path == "" {
		cfg.Path = DefaultAuditPath
	}
	if cfg.AsyncBuffer == 0 {
		cfg.AsyncBuffer = DefaultAuditAsyncBuffer
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = DefaultAuditWriteTimeout
	}
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = DefaultAuditPruneSchedule
	}
}

// DefaultConfig returns the configuration used when no document is found:
// the default guard domain and no rules, so every request passes through.
func DefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
