package policy

import (
	"log/slog"

	"mercator-hq/aiguard/pkg/config"
)

// Set is the ordered, read-only rule set built from a configuration.
type Set struct {
	domain    string
	insecure  bool
	overrides []config.HeaderOverride
	rules     []*Rule
	dropped   int
}

// NewSet builds a Set from cfg. Rules without a model are dropped with one
// warning each; the remaining rules keep their relative order.
func NewSet(cfg *config.Config, logger *slog.Logger) *Set {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "policy")

	s := &Set{
		domain:   cfg.PangeaDomain,
		insecure: cfg.Insecure,
	}
	if s.domain == "" {
		s.domain = config.DefaultPangeaDomain
	}

	for _, h := range cfg.Headers {
		recipes := make(map[string]string, len(h.Recipes))
		for k, v := range h.Recipes {
			recipes[k] = v
		}
		s.overrides = append(s.overrides, config.HeaderOverride{Header: h.Header, Recipes: recipes})
	}

	for i, rc := range cfg.Rules {
		if rc.Model == "" {
			logger.Warn("rule is missing the required model, ignoring rule", "rule_index", i)
			s.dropped++
			continue
		}
		s.rules = append(s.rules, newRule(i, rc, logger))
	}

	logger.Info("policy rules loaded", "rules", len(s.rules), "dropped", s.dropped)
	return s
}

// MatchRule returns the first rule whose model equals model, or nil.
func (s *Set) MatchRule(model string) *Rule {
	for _, r := range s.rules {
		if r.Match(model) {
			return r
		}
	}
	return nil
}

// Rules returns the matchable rules in configuration order.
func (s *Set) Rules() []*Rule {
	out := make([]*Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Dropped is the number of rules ignored for lacking a model.
func (s *Set) Dropped() int { return s.dropped }

// Domain is the guard service domain.
func (s *Set) Domain() string { return s.domain }

// Insecure reports whether the guard is reached over plain HTTP.
func (s *Set) Insecure() bool { return s.insecure }

// HeaderOverrides returns the header recipe overrides in configuration order.
func (s *Set) HeaderOverrides() []config.HeaderOverride {
	out := make([]config.HeaderOverride, len(s.overrides))
	for i, o := range s.overrides {
		recipes := make(map[string]string, len(o.Recipes))
		for k, v := range o.Recipes {
			recipes[k] = v
		}
		out[i] = config.HeaderOverride{Header: o.Header, Recipes: recipes}
	}
	return out
}
