package policy

import (
	"log/slog"
	"sort"

	"mercator-hq/aiguard/pkg/config"
)

// Rule binds a model identifier to per-service, per-phase guard parameters.
// A Rule is immutable after construction and safe for concurrent use.
type Rule struct {
	index        int
	model        string
	allowOnError bool
	services     map[string]map[string]phase
	logger       *slog.Logger
}

type phase struct {
	parameters map[string]any
	enabled    bool
}

func newRule(index int, rc config.RuleConfig, logger *slog.Logger) *Rule {
	services := make(map[string]map[string]phase, len(rc.Services))
	for name, svc := range rc.Services {
		phases := make(map[string]phase, len(svc))
		for phaseName, pc := range svc {
			phases[phaseName] = phase{
				parameters: deepCopyMap(pc.Parameters),
				enabled:    pc.Enabled(),
			}
		}
		services[name] = phases
	}

	return &Rule{
		index:        index,
		model:        rc.Model,
		allowOnError: rc.AllowOnError,
		services:     services,
		logger:       logger,
	}
}

// Index is the rule's position in the configuration document.
func (r *Rule) Index() int { return r.index }

// Model is the exact model identifier the rule matches.
func (r *Rule) Model() string { return r.model }

// AllowOnError reports whether guard failures let requests through.
func (r *Rule) AllowOnError() bool { return r.allowOnError }

// Services lists the configured service names in sorted order.
func (r *Rule) Services() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Match reports whether model equals the rule's model exactly.
func (r *Rule) Match(model string) bool {
	if model != r.model {
		r.logger.Debug("model did not match rule",
			"model", model,
			"rule_model", r.model,
			"rule_index", r.index,
		)
		return false
	}
	return true
}

// OperationParams returns a fresh Operation for the given phase of a
// service, or nil when there is nothing to do: the service or phase is not
// configured, the phase has no parameters object, or it is disabled.
// An empty service selects DefaultService.
func (r *Rule) OperationParams(phaseName, service string) *Operation {
	if service == "" {
		service = DefaultService
	}
	svc, ok := r.services[service]
	if !ok {
		return nil
	}
	p, ok := svc[phaseName]
	if !ok || p.parameters == nil || !p.enabled {
		return nil
	}
	return NewOperation(p.parameters)
}
