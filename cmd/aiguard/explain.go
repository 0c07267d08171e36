package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/aiguard/pkg/cli"
	"mercator-hq/aiguard/pkg/config"
	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/interceptor"
	"mercator-hq/aiguard/pkg/policy"
	"mercator-hq/aiguard/pkg/telemetry/logging"
)

var explainFlags struct {
	model    string
	headers  []string
	phase    string
	endpoint string
}

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Show which rule and recipe a request would use",
	Long: `Dry-run rule matching and recipe resolution for a model and a set of
request headers. The guard service is not called.

Examples:
  aiguard explain --model openai/gpt-4o
  aiguard explain --model openai/gpt-4o --header x-team=red --header x-pangea-aig-recipe=strict
  aiguard explain --model anthropic/claude-3 --phase response -o json`,
	RunE: explainRequest,
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().StringVarP(&explainFlags.model, "model", "m", "", "model identifier, e.g. openai/gpt-4o")
	explainCmd.Flags().StringArrayVarP(&explainFlags.headers, "header", "H", nil, "request header as name=value (repeatable)")
	explainCmd.Flags().StringVar(&explainFlags.phase, "phase", interceptor.PhaseRequest, "phase to explain (request, response)")
	explainCmd.Flags().StringVar(&explainFlags.endpoint, "endpoint", "/v1/chat/completions", "inbound API path used for log_fields")
	_ = explainCmd.MarkFlagRequired("model")
}

// explanation is the result of explain.
type explanation struct {
	Model   string         `json:"model"`
	Phase   string         `json:"phase"`
	Rule    *int           `json:"rule"`
	Action  string         `json:"action"`
	Service string         `json:"service,omitempty"`
	Recipe  string         `json:"recipe,omitempty"`
	URL     string         `json:"url,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

func explainRequest(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}
	if explainFlags.phase != interceptor.PhaseRequest && explainFlags.phase != interceptor.PhaseResponse {
		return fmt.Errorf("invalid phase %q (want request or response)", explainFlags.phase)
	}

	headers, err := parseHeaders(explainFlags.headers)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(p)
	if err != nil {
		return err
	}

	ex := explain(cfg, explainFlags.model, explainFlags.phase, explainFlags.endpoint, headers)

	rule := "-"
	if ex.Rule != nil {
		rule = strconv.Itoa(*ex.Rule)
	}
	params := ""
	if ex.Params != nil {
		data, err := json.Marshal(ex.Params)
		if err != nil {
			return err
		}
		params = string(data)
	}

	if p.Format == cli.FormatText {
		fmt.Fprintf(p.Out, "model:   %s\n", ex.Model)
		fmt.Fprintf(p.Out, "phase:   %s\n", ex.Phase)
		fmt.Fprintf(p.Out, "rule:    %s\n", rule)
		fmt.Fprintf(p.Out, "action:  %s\n", ex.Action)
		if ex.Recipe != "" {
			fmt.Fprintf(p.Out, "recipe:  %s\n", ex.Recipe)
			fmt.Fprintf(p.Out, "url:     %s\n", ex.URL)
			fmt.Fprintf(p.Out, "params:  %s\n", params)
		}
		return nil
	}

	return p.Result(ex,
		[]string{"MODEL", "PHASE", "RULE", "ACTION", "RECIPE", "PARAMS"},
		[][]string{{ex.Model, ex.Phase, rule, ex.Action, ex.Recipe, params}})
}

func explain(cfg *config.Config, model, phase, endpoint string, headers map[string]string) explanation {
	rules := policy.NewSet(cfg, logging.Discard())
	ex := explanation{Model: model, Phase: phase, Action: "pass through: no rule matches the model"}

	rule := rules.MatchRule(model)
	if rule == nil {
		return ex
	}
	index := rule.Index()
	ex.Rule = &index

	op := rule.OperationParams(phase, "")
	if op == nil {
		ex.Action = "pass through: no active " + phase + " operation"
		return ex
	}

	op.SetRecipe(policy.ResolveRecipe(op, headers, rules.HeaderOverrides()))
	op.Set("log_fields", interceptor.LogFields(model, endpoint))

	ex.Action = "guard"
	if rule.AllowOnError() {
		ex.Action = "guard (allow on error)"
	}
	ex.Service = cfg.Guard.Service
	ex.Recipe = op.Recipe()
	ex.URL = guard.BaseURL(cfg.Guard.Service, rules.Domain(), rules.Insecure())
	ex.Params = op.Params()
	return ex
}

// parseHeaders turns name=value pairs into a lower-cased header map.
func parseHeaders(pairs []string) (map[string]string, error) {
	headers := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header %q (want name=value)", pair)
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = value
	}
	return headers, nil
}
