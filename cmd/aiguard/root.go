package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercator-hq/aiguard/pkg/cli"
	"mercator-hq/aiguard/pkg/config"
)

var (
	// Global flags
	cfgFile      string
	envFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "aiguard",
	Short: "aiguard - Pangea AI Guard policy proxy for LLM traffic",
	Long: `aiguard enforces AI Guard policies on LLM requests.

Each chat or text completion is matched against an ordered list of rules
keyed by model. A matching rule sends the prompt to the Pangea AI Guard
service, which allows it, rewrites it with redactions, or blocks it before
the request reaches the model provider.

The configuration file is taken from --config, then PANGEA_LL_CONFIG_FILE,
then ./pangea_config.json. The guard token is read from PANGEA_AI_GUARD_TOKEN,
which may be set in a .env file.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $PANGEA_LL_CONFIG_FILE or pangea_config.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format (text, json, csv)")
}

// loadEnvFile loads envFile when it exists. Variables already set in the
// environment win.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		return nil
	}
	if _, err := os.Stat(envFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return cli.NewConfigError(envFile, err)
	}
	return nil
}

func newPrinter(cmd *cobra.Command) (*cli.Printer, error) {
	format, err := cli.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return cli.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), format), nil
}

// loadConfig resolves and loads the configuration, warning when the
// built-in default is used.
func loadConfig(p *cli.Printer) (*config.Config, error) {
	path := config.ResolvePath(cfgFile)
	cfg, usedDefault, err := config.Load(path)
	if err != nil {
		return nil, cli.NewConfigError(path, err)
	}
	if usedDefault {
		p.Warning("configuration file %s not found; using the built-in default", path)
	}
	return cfg, nil
}
