package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/aiguard/pkg/audit"
	"mercator-hq/aiguard/pkg/cli"
	"mercator-hq/aiguard/pkg/config"
	"mercator-hq/aiguard/pkg/guard"
	"mercator-hq/aiguard/pkg/interceptor"
	"mercator-hq/aiguard/pkg/policy"
	"mercator-hq/aiguard/pkg/proxy"
	"mercator-hq/aiguard/pkg/proxy/handlers"
	"mercator-hq/aiguard/pkg/server"
	"mercator-hq/aiguard/pkg/telemetry/health"
	"mercator-hq/aiguard/pkg/telemetry/logging"
	"mercator-hq/aiguard/pkg/telemetry/metrics"
	"mercator-hq/aiguard/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the aiguard proxy server",
	Long: `Start the proxy server with the specified configuration.

The server listens on proxy.listen_address and forwards OpenAI-compatible
requests to upstream.base_url after the request phase of the matching rule
has been enforced.

Examples:
  # Start with pangea_config.json
  aiguard run

  # Start with custom config
  aiguard run --config /etc/aiguard/config.yaml

  # Override listen address
  aiguard run --listen 0.0.0.0:8080

  # Validate config without starting server
  aiguard run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (none, error, warn, info, debug)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	p, err := newPrinter(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(p)
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.LogLevel = runFlags.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.LogLevel,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		Redact:    true,
	})
	if err != nil {
		return cli.NewConfigError("log_level", err)
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		p.Success("Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	return serve(ctx, cfg, logger, p)
}

// serve wires every component and blocks until the server stops.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, p *cli.Printer) error {
	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	tracer, err := tracing.New(cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	rules := policy.NewSet(cfg, logger)
	collector.SetRules(len(rules.Rules()), rules.Dropped())
	for _, w := range config.Lint(cfg) {
		logger.Warn("configuration warning", "field", w.Field, "message", w.Message)
	}

	if cfg.Guard.Token == "" {
		p.Warning("PANGEA_AI_GUARD_TOKEN is not set; guard calls will be rejected")
	}
	guardClient := guard.NewClient(guard.Config{
		Service:  cfg.Guard.Service,
		Domain:   rules.Domain(),
		Insecure: rules.Insecure(),
		Token:    cfg.Guard.Token,
		Timeout:  cfg.Guard.Timeout,
	}, logger)

	checker := health.New(5 * time.Second)
	opts := []interceptor.Option{
		interceptor.WithMetrics(collector),
		interceptor.WithTracer(tracer),
	}

	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit, logger)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open audit store: %w", err))
		}
		defer store.Close()

		recorder := audit.NewRecorder(store, cfg.Audit.AsyncBuffer, cfg.Audit.WriteTimeout, logger)
		defer recorder.Close()
		opts = append(opts, interceptor.WithAuditor(recorder))
		checker.RegisterCheck("audit", store.Ping)

		scheduler := audit.NewScheduler(
			audit.NewPruner(store, cfg.Audit.Retention.Days, logger),
			cfg.Audit.Retention.PruneSchedule,
			logger,
		)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to start audit pruning: %w", err))
		}
		defer scheduler.Stop()
	}

	engine := interceptor.New(rules, guardClient, logger, opts...)

	upstream, err := proxy.NewUpstream(cfg.Upstream, nil)
	if err != nil {
		return cli.NewConfigError("upstream.base_url", err)
	}

	srv := server.NewServer(&cfg.Proxy, server.Options{
		Completions: handlers.NewCompletionHandler(handlers.Config{
			Engine:       engine,
			Upstream:     upstream,
			Metrics:      collector,
			Logger:       logger,
			MaxBodyBytes: cfg.Proxy.MaxBodyBytes,
		}),
		Health:      checker,
		Metrics:     collector,
		MetricsPath: cfg.Telemetry.Metrics.Path,
		Tracer:      tracer,
		Logger:      logger,
		Version:     Version,
		Commit:      GitCommit,
		BuildTime:   BuildDate,
	})

	printBanner(p, cfg, rules)
	return srv.Start(ctx)
}

func printBanner(p *cli.Printer, cfg *config.Config, rules *policy.Set) {
	out := p.Out
	fmt.Fprintf(out, "aiguard %s\n", Version)
	fmt.Fprintf(out, "  listen:   %s\n", cfg.Proxy.ListenAddress)
	fmt.Fprintf(out, "  upstream: %s\n", cfg.Upstream.BaseURL)
	fmt.Fprintf(out, "  guard:    %s\n", guard.BaseURL(cfg.Guard.Service, rules.Domain(), rules.Insecure()))
	fmt.Fprintf(out, "  rules:    %d loaded, %d dropped\n", len(rules.Rules()), rules.Dropped())
	if cfg.Audit.Enabled {
		fmt.Fprintf(out, "  audit:    %s (%s)\n", cfg.Audit.Backend, cfg.Audit.Path)
	}
	fmt.Fprintln(out)
}
