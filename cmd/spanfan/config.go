package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mercator-hq/spanfan/pkg/cli"
	"mercator-hq/spanfan/pkg/config"
)

var configFlags struct {
	format string
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect spanfan configuration",
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a configuration file",
	Long: `Load the configuration file with SPANFAN_* environment overrides, validate
it and print which sinks a pipeline built from it would install.

Examples:
  # Check a file
  spanfan config check --config spanfan.yaml

  # JSON output for CI/CD
  spanfan config check --config spanfan.yaml --format json`,
	RunE: checkConfig,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	RunE:  showConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd, configShowCmd)

	configCheckCmd.Flags().StringVar(&configFlags.format, "format", "text", "output format: text, json, csv")
}

// ConfigReport is the result of config check.
type ConfigReport struct {
	File        string   `json:"file"`
	Valid       bool     `json:"valid"`
	Errors      []string `json:"errors,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`
	ServiceName string   `json:"service_name,omitempty"`
	Chrome      string   `json:"chrome,omitempty"`
	Export      string   `json:"export,omitempty"`
	LogLevel    string   `json:"log_level,omitempty"`
	Metrics     bool     `json:"metrics"`
}

// Table renders the report as key/value rows.
func (r ConfigReport) Table() cli.Table {
	t := cli.Table{Headers: []string{"key", "value"}}
	add := func(k, v string) {
		t.Rows = append(t.Rows, []string{k, v})
	}

	add("file", r.File)
	add("valid", strconv.FormatBool(r.Valid))
	for _, e := range r.Errors {
		add("error", e)
	}
	for _, w := range r.Warnings {
		add("warning", w)
	}
	if r.Valid {
		add("service_name", r.ServiceName)
		add("chrome", r.Chrome)
		add("export", r.Export)
		add("log_level", r.LogLevel)
		add("metrics", strconv.FormatBool(r.Metrics))
	}
	return t
}

func checkConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(configFlags.format)
	if err != nil {
		return err
	}

	report := buildConfigReport(cfgFile)
	if err := cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if !report.Valid {
		return cli.NewCommandError("config check", fmt.Errorf("%d configuration error(s)", len(report.Errors)))
	}
	return nil
}

func buildConfigReport(path string) ConfigReport {
	report := ConfigReport{File: path}
	if path == "" {
		report.File = "(defaults)"
	}

	var cfg *config.Config
	if path == "" {
		cfg = config.NewDefaultConfig()
	} else {
		var err error
		cfg, err = config.LoadConfigWithEnvOverrides(path)
		if err != nil {
			var verr config.ValidationError
			if errors.As(err, &verr) {
				for _, fe := range verr.Errors {
					report.Errors = append(report.Errors, fe.Error())
				}
			} else {
				report.Errors = append(report.Errors, err.Error())
			}
			return report
		}
	}

	tr := cfg.Telemetry.Tracing
	report.Valid = true
	report.ServiceName = tr.ServiceName
	report.LogLevel = cfg.Telemetry.Logging.Level
	report.Metrics = cfg.Telemetry.Metrics.Enabled

	report.Chrome = "disabled"
	if tr.Chrome.Enabled {
		report.Chrome = tr.Chrome.Path
		if tr.Chrome.Path == "" {
			report.Chrome = "(writer supplied at runtime)"
			report.Warnings = append(report.Warnings, "chrome sink enabled without a path; commands must pass --chrome")
		}
		if tr.Chrome.Compress {
			report.Chrome += " (gzip)"
		}
	}

	report.Export = "disabled"
	if tr.Export.Enabled {
		report.Export = fmt.Sprintf("%s %s", tr.Export.Exporter, tr.Export.Endpoint)
		if tr.Export.RedactPII {
			report.Export += " (redacted)"
		}
	}

	if !tr.Chrome.Enabled && !tr.Export.Enabled {
		report.Warnings = append(report.Warnings, "no sink enabled")
	}
	return report
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
