package main

import (
	"runtime"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/sdk"

	"mercator-hq/spanfan/pkg/cli"
)

// Set with -ldflags "-X main.Version=...".
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionFormat string

// BuildInfo describes the running binary.
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	OTelSDK   string `json:"otel_sdk"`
}

// Table implements cli.Tabular.
func (b BuildInfo) Table() cli.Table {
	return cli.Table{
		Headers: []string{"field", "value"},
		Rows: [][]string{
			{"version", b.Version},
			{"git_commit", b.GitCommit},
			{"build_date", b.BuildDate},
			{"go_version", b.GoVersion},
			{"platform", b.Platform},
			{"otel_sdk", b.OTelSDK},
		},
	}
}

func currentBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		OTelSDK:   sdk.Version(),
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the build version, commit, Go toolchain and OpenTelemetry SDK version.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseFormat(versionFormat)
		if err != nil {
			return err
		}
		return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), currentBuildInfo())
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "text", "output format: text, json, csv")
	rootCmd.AddCommand(versionCmd)
}
