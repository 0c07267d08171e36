package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/aiguard/pkg/cli"
	"mercator-hq/aiguard/pkg/config"
	"mercator-hq/aiguard/pkg/interceptor"
	"mercator-hq/aiguard/pkg/policy"
	"mercator-hq/aiguard/pkg/telemetry/logging"
)

var validateFlags struct {
	strict bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration and print its rules",
	Long: `Load, validate and lint a configuration file, then print the rules in
match order with the recipe each phase would use by default.

Lint warnings (rules without a model, rules shadowed by an earlier rule for
the same model) do not fail validation unless --strict is given.

Examples:
  aiguard validate --config pangea_config.json
  aiguard validate --strict -o json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.strict, "strict", false, "treat lint warnings as errors")
}

// ruleSummary is one row of validate output.
type ruleSummary struct {
	Index          int    `json:"index"`
	Model          string `json:"model"`
	AllowOnError   bool   `json:"allow_on_error"`
	RequestRecipe  string `json:"request_recipe,omitempty"`
	ResponseRecipe string `json:"response_recipe,omitempty"`
}

type validateResult struct {
	Valid    bool          `json:"valid"`
	Domain   string        `json:"pangea_domain"`
	Rules    []ruleSummary `json:"rules"`
	Dropped  int           `json:"dropped"`
	Warnings []string      `json:"warnings,omitempty"`
}

func validateConfig(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(p)
	if err != nil {
		return err
	}

	result := summarize(cfg)

	if p.Format == cli.FormatText {
		for _, w := range result.Warnings {
			p.Warning("%s", w)
		}
	}

	rows := make([][]string, len(result.Rules))
	for i, r := range result.Rules {
		rows[i] = []string{
			strconv.Itoa(r.Index),
			r.Model,
			strconv.FormatBool(r.AllowOnError),
			orDash(r.RequestRecipe),
			orDash(r.ResponseRecipe),
		}
	}
	if err := p.Result(result, []string{"#", "MODEL", "ALLOW ON ERROR", "REQUEST", "RESPONSE"}, rows); err != nil {
		return err
	}

	if validateFlags.strict && len(result.Warnings) > 0 {
		return cli.NewConfigError(config.ResolvePath(cfgFile),
			fmt.Errorf("%d lint warning(s): %s", len(result.Warnings), strings.Join(result.Warnings, "; ")))
	}

	if p.Format == cli.FormatText {
		p.Success("Configuration valid: %d rule(s), %d dropped", len(result.Rules), result.Dropped)
	}
	return nil
}

func summarize(cfg *config.Config) validateResult {
	rules := policy.NewSet(cfg, logging.Discard())

	result := validateResult{
		Valid:   true,
		Domain:  rules.Domain(),
		Rules:   make([]ruleSummary, 0, len(rules.Rules())),
		Dropped: rules.Dropped(),
	}
	for _, rule := range rules.Rules() {
		result.Rules = append(result.Rules, ruleSummary{
			Index:          rule.Index(),
			Model:          rule.Model(),
			AllowOnError:   rule.AllowOnError(),
			RequestRecipe:  phaseRecipe(rule, interceptor.PhaseRequest),
			ResponseRecipe: phaseRecipe(rule, interceptor.PhaseResponse),
		})
	}
	for _, w := range config.Lint(cfg) {
		result.Warnings = append(result.Warnings, w.Error())
	}
	return result
}

// phaseRecipe returns the recipe phase would use without header overrides,
// or "" when the phase is inactive.
func phaseRecipe(rule *policy.Rule, phase string) string {
	op := rule.OperationParams(phase, "")
	if op == nil {
		return ""
	}
	return policy.ResolveRecipe(op, nil, nil)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
