package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/spanfan/pkg/cli"
	"mercator-hq/spanfan/pkg/config"
	"mercator-hq/spanfan/pkg/telemetry/logging"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "spanfan",
	Short: "spanfan - dual-sink span pipeline",
	Long: `spanfan fans instrumentation spans out to two sinks:

  - a local Chrome trace file that receives every span and event
  - a remote OpenTelemetry collector that receives only the spans not
    marked opentelemetry.skip=true

Without --config the built-in defaults are used and both sinks start
disabled; commands that need a sink enable it through their own flags.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig loads the --config file with SPANFAN_* overrides and stores it
// as the process configuration.
func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		cfg := config.NewDefaultConfig()
		config.SetConfig(cfg)
		return cfg, nil
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	config.SetConfig(cfg)
	return cfg, nil
}

// newLogger builds the command logger. --verbose forces debug level.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	lc := logging.FromConfig(&cfg.Telemetry.Logging, os.Stderr)
	if verbose {
		lc.Level = "debug"
	}
	logger, err := logging.New(lc)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return cli.SignalContext(logging.WithComponent(parent, cmd.Name()))
}
