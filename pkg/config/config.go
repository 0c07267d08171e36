package config

import "time"

// Config is the root configuration structure for the AI Guard proxy.
//
// The top-level fields pangea_domain, insecure, log_level, headers and rules
// form the policy document understood by the interception engine. The
// remaining sections configure the proxy process around it.
type Config struct {
	// PangeaDomain is the domain of the guard service.
	// Default: "aws.us.pangea.cloud"
	PangeaDomain string `yaml:"pangea_domain"`

	// Insecure selects plain HTTP when talking to the guard service.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// LogLevel is the minimum log severity.
	// Options: "none", "error", "warn", "info", "debug"
	// Default: value of PANGEA_LOG_LEVEL, otherwise "warn"
	LogLevel string `yaml:"log_level"`

	// Headers maps a request header name to a table of header value ->
	// recipe overrides. Entries keep the order of the document.
	Headers HeaderRecipeMap `yaml:"headers"`

	// Rules is the ordered list of policy rules. Order is significant:
	// the first rule matching a model wins.
	Rules []RuleConfig `yaml:"rules"`

	// Proxy contains HTTP listener configuration.
	Proxy ProxyConfig `yaml:"proxy"`

	// Upstream is the OpenAI-compatible endpoint requests are forwarded to.
	Upstream UpstreamConfig `yaml:"upstream"`

	// Guard configures the HTTP client used to reach the guard service.
	Guard GuardConfig `yaml:"guard"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Audit configures the decision audit trail.
	Audit AuditConfig `yaml:"audit"`
}

// ProxyConfig contains configuration for the HTTP proxy server.
type ProxyConfig struct {
	// ListenAddress is the address and port for the proxy to listen on.
	// Default: "127.0.0.1:4000"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of the
	// response. Completions can be slow, so this is generous.
	// Default: 600s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle timeout.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits request header size.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes limits inbound request bodies.
	// Default: 10485760 (10MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// UpstreamConfig describes the model provider endpoint.
type UpstreamConfig struct {
	// BaseURL is the base URL requests are forwarded to. The inbound path
	// is appended unchanged.
	// Default: "https://api.openai.com"
	BaseURL string `yaml:"base_url"`

	// APIKey, when set, replaces the inbound Authorization header.
	APIKey string `yaml:"api_key"`

	// Timeout bounds a single upstream call.
	// Default: 600s
	Timeout time.Duration `yaml:"timeout"`
}

// GuardConfig configures the guard service client.
type GuardConfig struct {
	// Service is the service subdomain used for cloud domains.
	// Default: "ai-guard"
	Service string `yaml:"service"`

	// Token is the bearer token. Normally supplied via PANGEA_AI_GUARD_TOKEN.
	Token string `yaml:"token"`

	// Timeout bounds a single guard call.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains log output configuration. The level itself is the
// top-level log_level field.
type LoggingConfig struct {
	// Format is the output format ("json" or "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file:line in log records.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus configuration.
type MetricsConfig struct {
	// Enabled exposes the metrics endpoint.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the metrics endpoint path.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace prefixes every metric name.
	// Default: "aiguard"
	Namespace string `yaml:"namespace"`
}

// IsEnabled reports whether metrics are enabled, treating an unset flag as true.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// TracingConfig contains OpenTelemetry configuration.
type TracingConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Endpoint    string  `yaml:"endpoint"`
	Insecure    bool    `yaml:"insecure"`
	ServiceName string  `yaml:"service_name"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// AuditConfig configures decision recording.
type AuditConfig struct {
	// Enabled turns decision recording on.
	Enabled bool `yaml:"enabled"`

	// Backend is the storage backend.
	// Options: "memory", "sqlite" (pure Go), "sqlite3" (cgo)
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the database file for the sqlite backends.
	// Default: "data/aiguard-audit.db"
	Path string `yaml:"path"`

	// AsyncBuffer is the recorder channel size.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds a single store write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	Retention AuditRetentionConfig `yaml:"retention"`
}

// AuditRetentionConfig configures pruning of old decisions.
type AuditRetentionConfig struct {
	// Days to keep records. 0 keeps them forever.
	Days int `yaml:"days"`

	// PruneSchedule is a standard cron expression.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`
}
