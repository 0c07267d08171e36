package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the document read when neither a flag nor
// PANGEA_LL_CONFIG_FILE names one.
const DefaultConfigFile = "pangea_config.json"

// ResolvePath picks the configuration file location. An explicit path wins,
// then PANGEA_LL_CONFIG_FILE, then DefaultConfigFile.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("PANGEA_LL_CONFIG_FILE"); env != "" {
		return env
	}
	return DefaultConfigFile
}

// Parse decodes a configuration document. JSON documents are accepted as
// they are valid YAML. Defaults are applied and the result is validated.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfig loads configuration from the file at path.
// Environment variables are not consulted beyond PANGEA_LOG_LEVEL; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from path and applies
// environment overrides. Overrides use the AIGUARD_SECTION_FIELD naming
// convention; the guard token is read from PANGEA_AI_GUARD_TOKEN.
//
// The loading sequence is:
// 1. Load YAML/JSON from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Load reads the document at path with environment overrides. When the file
// does not exist the built-in default configuration is returned and
// usedDefault is true; the caller is expected to warn about it.
func Load(path string) (cfg *Config, usedDefault bool, err error) {
	cfg, err = LoadConfigWithEnvOverrides(path)
	if err == nil {
		return cfg, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, err
	}

	cfg = DefaultConfig()
	applyEnvOverrides(cfg)
	if err := Validate(cfg); err != nil {
		return nil, true, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, true, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("PANGEA_AI_GUARD_TOKEN"); val != "" {
		cfg.Guard.Token = val
	}
	if val := os.Getenv("AIGUARD_PANGEA_DOMAIN"); val != "" {
		cfg.PangeaDomain = val
	}
	if val := os.Getenv("AIGUARD_INSECURE"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Insecure = b
		}
	}
	if val := os.Getenv("AIGUARD_GUARD_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Guard.Timeout = d
		}
	}

	// Proxy overrides
	if val := os.Getenv("AIGUARD_PROXY_LISTEN_ADDRESS"); val != "" {
		cfg.Proxy.ListenAddress = val
	}
	if val := os.Getenv("AIGUARD_PROXY_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Proxy.WriteTimeout = d
		}
	}

	// Upstream overrides
	if val := os.Getenv("AIGUARD_UPSTREAM_BASE_URL"); val != "" {
		cfg.Upstream.BaseURL = val
	}
	if val := os.Getenv("AIGUARD_UPSTREAM_API_KEY"); val != "" {
		cfg.Upstream.APIKey = val
	}
	if val := os.Getenv("AIGUARD_UPSTREAM_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Upstream.Timeout = d
		}
	}

	// Telemetry overrides
	if val := os.Getenv("AIGUARD_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("AIGUARD_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = &b
		}
	}
	if val := os.Getenv("AIGUARD_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("AIGUARD_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}

	// Audit overrides
	if val := os.Getenv("AIGUARD_AUDIT_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Audit.Enabled = b
		}
	}
	if val := os.Getenv("AIGUARD_AUDIT_BACKEND"); val != "" {
		cfg.Audit.Backend = val
	}
	if val := os.Getenv("AIGUARD_AUDIT_PATH"); val != "" {
		cfg.Audit.Path = val
	}
	if val := os.Getenv("AIGUARD_AUDIT_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Audit.Retention.Days = i
		}
	}
}
