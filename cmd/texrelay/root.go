package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"texrelay-hq/texrelay/pkg/cli"
	"texrelay-hq/texrelay/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "texrelay",
	Short: "texrelay - LaTeX to PDF compile proxy",
	Long: `texrelay accepts LaTeX source over HTTP, forwards it to an external
compiler service and returns the PDF as a base64 data URI or raw bytes.

Configuration comes from an optional YAML file (--config) overlaid with
TEXRELAY_* environment variables. The expected API key is read through the
configured secret providers, LATEX_API_KEY by default.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// maxprocs.Set only fails on a malformed GOMAXPROCS, in which case
		// the runtime default stays in place.
		_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
			if verbose {
				fmt.Fprintf(os.Stderr, format+"\n", args...)
			}
		}))
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and environment only when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads --config with environment overrides applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	return cfg, nil
}
