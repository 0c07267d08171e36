package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/aiguard/pkg/audit"
	"mercator-hq/aiguard/pkg/cli"
	"mercator-hq/aiguard/pkg/config"
	"mercator-hq/aiguard/pkg/telemetry/logging"
)

var auditFlags struct {
	since   time.Duration
	verdict string
	model   string
	limit   int
	days    int
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect and prune the decision audit trail",
	Long: `Query or prune the guard decisions recorded by a running proxy.

The store is taken from the audit section of the configuration.

Examples:
  # Last 20 blocked decisions of the past day
  aiguard audit list --verdict blocked --since 24h --limit 20

  # Delete decisions older than 30 days
  aiguard audit prune --days 30`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded decisions, newest first",
	RunE:  listDecisions,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete decisions older than the retention period",
	RunE:  pruneDecisions,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditCmd.AddCommand(auditPruneCmd)

	auditListCmd.Flags().DurationVar(&auditFlags.since, "since", 0, "only decisions newer than this duration, e.g. 24h")
	auditListCmd.Flags().StringVar(&auditFlags.verdict, "verdict", "", "filter by verdict (allowed, rewritten, blocked, failed)")
	auditListCmd.Flags().StringVar(&auditFlags.model, "model", "", "filter by model")
	auditListCmd.Flags().IntVar(&auditFlags.limit, "limit", audit.DefaultListLimit, "maximum number of decisions")

	auditPruneCmd.Flags().IntVar(&auditFlags.days, "days", 0, "retention in days (default audit.retention.days)")
}

func openAuditStore(p *cli.Printer) (*config.Config, audit.Store, error) {
	cfg, err := loadConfig(p)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Audit.Enabled {
		p.Warning("audit is disabled in the configuration; reading %s anyway", cfg.Audit.Path)
	}
	store, err := audit.Open(cfg.Audit, logging.Discard())
	if err != nil {
		return nil, nil, cli.NewCommandError("audit", err)
	}
	return cfg, store, nil
}

func listDecisions(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	_, store, err := openAuditStore(p)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := audit.Filter{
		Verdict: auditFlags.verdict,
		Model:   auditFlags.model,
		Limit:   auditFlags.limit,
	}
	if auditFlags.since > 0 {
		filter.Since = time.Now().Add(-auditFlags.since)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	records, err := store.List(ctx, filter)
	if err != nil {
		return cli.NewCommandError("audit list", err)
	}

	rows := make([][]string, len(records))
	for i, r := range records {
		rule := "-"
		if r.RuleIndex != audit.NoRule {
			rule = strconv.Itoa(r.RuleIndex)
		}
		rows[i] = []string{
			r.Timestamp.Local().Format(time.RFC3339),
			r.RequestID,
			r.Phase,
			r.Verdict,
			r.Model,
			rule,
			r.Recipe,
			r.Summary,
		}
	}
	return p.Result(records, []string{"TIME", "REQUEST", "PHASE", "VERDICT", "MODEL", "RULE", "RECIPE", "SUMMARY"}, rows)
}

func pruneDecisions(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	cfg, store, err := openAuditStore(p)
	if err != nil {
		return err
	}
	defer store.Close()

	days := cfg.Audit.Retention.Days
	if auditFlags.days > 0 {
		days = auditFlags.days
	}
	if days <= 0 {
		return fmt.Errorf("no retention period: set audit.retention.days or pass --days")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	deleted, err := audit.NewPruner(store, days, logging.Discard()).Prune(ctx)
	if err != nil {
		return cli.NewCommandError("audit prune", err)
	}

	p.Success("Deleted %d decision(s) older than %d day(s)", deleted, days)
	return nil
}
