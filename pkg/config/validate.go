package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "rules[2].model").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// LogLevels lists the accepted log_level values in increasing verbosity.
var LogLevels = []string{"none", "error", "warn", "info", "debug"}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. Rules without a model are not errors; see Lint.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateDocument(cfg)...)
	errs = append(errs, validateProxy(&cfg.Proxy)...)
	errs = append(errs, validateUpstream(&cfg.Upstream)...)
	errs = append(errs, validateGuard(&cfg.Guard)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateDocument(cfg *Config) []FieldError {
	var errs []FieldError

	if !isValidLogLevel(cfg.LogLevel) {
		errs = append(errs, FieldError{
			Field:   "log_level",
			Message: fmt.Sprintf("invalid log level %q (must be one of: %s)", cfg.LogLevel, strings.Join(LogLevels, ", ")),
		})
	}

	for _, h := range cfg.Headers {
		if h.Header == "" {
			errs = append(errs, FieldError{
				Field:   "headers",
				Message: "header name must not be empty",
			})
		}
	}

	for i, rule := range cfg.Rules {
		for svcName, svc := range rule.Services {
			for phase, pc := range svc {
				if v, ok := pc.Parameters["enabled"]; ok {
					if _, isBool := v.(bool); !isBool {
						errs = append(errs, FieldError{
							Field:   fmt.Sprintf("rules[%d].%s.%s.parameters.enabled", i, svcName, phase),
							Message: "enabled must be a boolean",
						})
					}
				}
				if v, ok := pc.Parameters["recipe"]; ok {
					if s, isString := v.(string); !isString || s == "" {
						errs = append(errs, FieldError{
							Field:   fmt.Sprintf("rules[%d].%s.%s.parameters.recipe", i, svcName, phase),
							Message: "recipe must be a non-empty string",
						})
					}
				}
			}
		}
	}

	return errs
}

func validateProxy(cfg *ProxyConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "proxy.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.idle_timeout",
			Message: "idle timeout must be positive",
		})
	}
	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_header_bytes",
			Message: "max header bytes must be non-negative",
		})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "proxy.max_body_bytes",
			Message: "max body bytes must be non-negative",
		})
	}

	return errs
}

func validateUpstream(cfg *UpstreamConfig) []FieldError {
	var errs []FieldError

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, FieldError{
			Field:   "upstream.base_url",
			Message: fmt.Sprintf("invalid URL %q (must be http or https with a host)", cfg.BaseURL),
		})
	}
	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   "upstream.timeout",
			Message: "timeout must be positive",
		})
	}

	return errs
}

func validateGuard(cfg *GuardConfig) []FieldError {
	var errs []FieldError

	if cfg.Timeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "guard.timeout",
			Message: "timeout must be positive",
		})
	}
	if strings.ContainsAny(cfg.Service, "/:") {
		errs = append(errs, FieldError{
			Field:   "guard.service",
			Message: "service must be a bare host label",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Format {
	case "json", "text":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be json or text)", cfg.Logging.Format),
		})
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "endpoint is required when tracing is enabled",
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0 and 1",
		})
	}

	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory", "sqlite", "sqlite3":
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("unsupported backend %q (must be memory, sqlite or sqlite3)", cfg.Backend),
		})
	}
	if cfg.AsyncBuffer < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.async_buffer",
			Message: "async buffer must be non-negative",
		})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "audit.retention.days",
			Message: "retention days must be non-negative",
		})
	}
	if cfg.Retention.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "audit.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// Lint reports non-fatal problems in the rule set: rules that will be
// dropped for lacking a model and rules shadowed by an earlier rule for the
// same model.
func Lint(cfg *Config) []FieldError {
	var warnings []FieldError
	firstByModel := make(map[string]int)

	for i, rule := range cfg.Rules {
		if rule.Model == "" {
			warnings = append(warnings, FieldError{
				Field:   fmt.Sprintf("rules[%d].model", i),
				Message: "model is required; rule will be ignored",
			})
			continue
		}
		if first, seen := firstByModel[rule.Model]; seen {
			warnings = append(warnings, FieldError{
				Field:   fmt.Sprintf("rules[%d].model", i),
				Message: fmt.Sprintf("model %q already matched by rules[%d]; rule is unreachable", rule.Model, first),
			})
			continue
		}
		firstByModel[rule.Model] = i
		if len(rule.Services) == 0 {
			warnings = append(warnings, FieldError{
				Field:   fmt.Sprintf("rules[%d]", i),
				Message: "rule configures no service; matching requests pass through",
			})
		}
	}

	for _, h := range cfg.Headers {
		if len(h.Recipes) == 0 {
			warnings = append(warnings, FieldError{
				Field:   "headers." + h.Header,
				Message: "no header values mapped to recipes",
			})
		}
	}

	return warnings
}

func isValidLogLevel(level string) bool {
	for _, l := range LogLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}
