package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Well-known phase names.
const (
	PhaseRequest  = "request"
	PhaseResponse = "response"
)

// RuleConfig is one entry of the rules list.
//
// Besides model and allow_on_error, every mapping-valued key that contains a
// "request" or "response" entry is read as a service (e.g. "ai_guard").
// Other keys such as host, endpoint, protocols, ports and audit_values are
// kept in Extra and carry no behaviour.
type RuleConfig struct {
	// Model is the exact model identifier the rule matches. Required; rules
	// without it are dropped when the policy set is built.
	Model string

	// AllowOnError lets requests through when the guard call fails.
	// Default: false
	AllowOnError bool

	// Services maps a service name to its per-phase configuration.
	Services map[string]ServiceConfig

	// Extra holds informational keys that do not affect matching.
	Extra map[string]any
}

// ServiceConfig maps a phase name ("request", "response") to its configuration.
type ServiceConfig map[string]PhaseConfig

// PhaseConfig is the configuration for one service phase.
type PhaseConfig struct {
	// Parameters is the raw parameter object sent to the guard. It may
	// carry an "enabled" boolean (default true).
	Parameters map[string]any `yaml:"parameters"`
}

// Enabled reports the phase's enabled flag, defaulting to true.
func (p PhaseConfig) Enabled() bool {
	v, ok := p.Parameters["enabled"].(bool)
	return !ok || v
}

// UnmarshalYAML decodes a rule from a mapping node.
func (r *RuleConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: rule must be a mapping", value.Line)
	}

	out := RuleConfig{
		Services: make(map[string]ServiceConfig),
		Extra:    make(map[string]any),
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		node := value.Content[i+1]

		switch key {
		case "model":
			if node.Kind != yaml.ScalarNode {
				return fmt.Errorf("line %d: model must be a string", node.Line)
			}
			if node.Tag != "!!null" {
				out.Model = node.Value
			}

		case "allow_on_error":
			if node.Tag == "!!null" {
				continue
			}
			var b bool
			if err := node.Decode(&b); err != nil {
				return fmt.Errorf("line %d: allow_on_error must be a boolean", node.Line)
			}
			out.AllowOnError = b

		default:
			if isServiceNode(node) {
				svc, err := decodeService(node)
				if err != nil {
					return fmt.Errorf("line %d: service %q: %w", node.Line, key, err)
				}
				out.Services[key] = svc
				continue
			}
			var v any
			if err := node.Decode(&v); err != nil {
				return fmt.Errorf("line %d: %q: %w", node.Line, key, err)
			}
			out.Extra[key] = v
		}
	}

	*r = out
	return nil
}

// isServiceNode reports whether a node looks like a service block.
// decodeService decodes the request and response phases of a service block.
// Other keys are ignored.
func decodeService(node *yaml.Node) (ServiceConfig, error) {
	svc := make(ServiceConfig)
	for i := 0; i+1 < len(node.Content); i += 2 {
		phase := node.Content[i].Value
		if phase != PhaseRequest && phase != PhaseResponse {
			continue
		}
		var pc PhaseConfig
		if err := node.Content[i+1].Decode(&pc); err != nil {
			return nil, fmt.Errorf("%s: %w", phase, err)
		}
		svc[phase] = pc
	}
	return svc, nil
}

func isServiceNode(node *yaml.Node) bool {
	if node.Kind != yaml.MappingNode {
		return false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		switch node.Content[i].Value {
		case PhaseRequest, PhaseResponse:
			return true
		}
	}
	return false
}

// HeaderOverride maps values of one request header to recipe names.
type HeaderOverride struct {
	// Header is the lower-cased header name.
	Header string

	// Recipes maps a header value to the recipe that replaces the default.
	Recipes map[string]string
}

// HeaderRecipeMap is the ordered headers section of the document.
type HeaderRecipeMap []HeaderOverride

// UnmarshalYAML decodes the headers mapping while keeping document order.
func (h *HeaderRecipeMap) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		*h = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: headers must be a mapping", value.Line)
	}

	out := make(HeaderRecipeMap, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		name := value.Content[i].Value
		var recipes map[string]string
		if err := value.Content[i+1].Decode(&recipes); err != nil {
			return fmt.Errorf("line %d: headers.%s must map header values to recipe names: %w",
				value.Content[i+1].Line, name, err)
		}
		out = append(out, HeaderOverride{
			Header:  strings.ToLower(name),
			Recipes: recipes,
		})
	}

	*h = out
	return nil
}
