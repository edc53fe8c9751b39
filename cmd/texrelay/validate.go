package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"texrelay-hq/texrelay/pkg/cli"
	"texrelay-hq/texrelay/pkg/config"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration the way "run" does and report the effective
settings, or every validation error found.

Environment overrides (TEXRELAY_*) are applied before validation, so the
output shows what the server would actually use.

Examples:
  # Validate a config file
  texrelay validate --config config.yaml

  # Validate defaults plus environment
  texrelay validate

  # Machine-readable summary
  texrelay validate --config config.yaml --output json`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format: text, json")
}

// configSummary is the effective configuration minus anything secret.
type configSummary struct {
	Source         string `json:"source"`
	ListenAddress  string `json:"listen_address"`
	ConvertPath    string `json:"convert_path"`
	TLS            bool   `json:"tls"`
	RequestBudget  string `json:"request_budget"`
	CompilerMode   string `json:"compiler_mode"`
	CompilerURL    string `json:"compiler_url"`
	Engine         string `json:"engine"`
	EscapeSpecials bool   `json:"escape_special_chars"`
	MaxChars       int    `json:"max_document_chars"`
	AuthMode       string `json:"auth_mode"`
	AuthHeader     string `json:"auth_header"`
	Providers      string `json:"secret_providers"`
	Metrics        bool   `json:"metrics"`
	Tracing        bool   `json:"tracing"`
}

func newConfigSummary(cfg *config.Config, source string) configSummary {
	return configSummary{
		Source:         source,
		ListenAddress:  cfg.Proxy.ListenAddress,
		ConvertPath:    cfg.Proxy.ConvertPath,
		TLS:            cfg.Proxy.TLS.Enabled,
		RequestBudget:  cfg.Proxy.RequestBudget.String(),
		CompilerMode:   cfg.Compiler.Mode,
		CompilerURL:    cfg.Compiler.URL,
		Engine:         cfg.Compiler.Engine,
		EscapeSpecials: cfg.Compiler.EscapeSpecialChars,
		MaxChars:       cfg.Compiler.MaxDocumentChars,
		AuthMode:       cfg.Security.Authentication.Mode,
		AuthHeader:     cfg.Security.Authentication.Header,
		Providers:      strings.Join(providerTypes(cfg), ","),
		Metrics:        cfg.Telemetry.Metrics.Enabled,
		Tracing:        cfg.Telemetry.Tracing.Enabled,
	}
}

func (s configSummary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "✓ Configuration valid (%s)\n\n", s.Source)
	fmt.Fprintf(&sb, "Listen:    %s%s (tls: %t)\n", s.ListenAddress, s.ConvertPath, s.TLS)
	fmt.Fprintf(&sb, "Budget:    %s\n", s.RequestBudget)
	fmt.Fprintf(&sb, "Compiler:  %s %s (engine %s, escape specials: %t)\n", s.CompilerMode, s.CompilerURL, s.Engine, s.EscapeSpecials)
	fmt.Fprintf(&sb, "Max chars: %d\n", s.MaxChars)
	fmt.Fprintf(&sb, "Auth:      %s via %s (providers: %s)\n", s.AuthMode, s.AuthHeader, s.Providers)
	fmt.Fprintf(&sb, "Telemetry: metrics %t, tracing %t", s.Metrics, s.Tracing)
	if s.AuthMode == config.AuthModeOptional {
		sb.WriteString("\n\n⚠️  Auth mode is optional: requests without a key are accepted")
	}
	return sb.String()
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.output)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	source := cfgFile
	if source == "" {
		source = "defaults and environment"
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), newConfigSummary(cfg, source))
}
