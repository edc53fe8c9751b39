package main

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"texrelay-hq/texrelay/pkg/cli"
	"texrelay-hq/texrelay/pkg/config"
	"texrelay-hq/texrelay/pkg/security/secrets"
)

var keysFlags struct {
	bytes    int
	encoding string
	output   string
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Utilities for the API key clients send in the x-api-key header.

Subcommands:
  generate - Generate a new random API key`,
}

var keysGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new API key",
	Long: `Generate a random API key from crypto/rand.

The key is printed once. Provision it as the expected key, LATEX_API_KEY with
the default env provider, and hand it to clients.

Examples:
  # 32 random bytes, base64url encoded
  texrelay keys generate

  # Hex encoding
  texrelay keys generate --encoding hex

  # JSON output with the env var to set
  texrelay keys generate --output json`,
	RunE: generateKey,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysGenerateCmd)

	keysGenerateCmd.Flags().IntVar(&keysFlags.bytes, "bytes", 32, "random bytes in the key (16-128)")
	keysGenerateCmd.Flags().StringVar(&keysFlags.encoding, "encoding", "base64url", "key encoding: base64url, hex")
	keysGenerateCmd.Flags().StringVarP(&keysFlags.output, "output", "o", "text", "output format: text, json")
}

type generatedKey struct {
	Key      string `json:"key"`
	Encoding string `json:"encoding"`
	Bits     int    `json:"bits"`
	EnvVar   string `json:"env_var,omitempty"`
	Header   string `json:"header"`
}

func (k generatedKey) String() string {
	var sb strings.Builder
	sb.WriteString(k.Key)
	sb.WriteString("\n\n⚠️  Store this key securely; it is not shown again.")
	if k.EnvVar != "" {
		fmt.Fprintf(&sb, "\nServer: export %s=%q", k.EnvVar, k.Key)
	}
	fmt.Fprintf(&sb, "\nClient: send it in the %s header", k.Header)
	return sb.String()
}

// keyTarget resolves where the server reads the expected key from. A config
// that fails to load falls back to defaults, since generating a key does not
// depend on it.
func keyTarget() (envVar, header string) {
	cfg, err := loadConfig()
	if err != nil {
		cfg = config.Defaults()
	}

	auth := cfg.Security.Authentication
	for _, p := range cfg.Security.Secrets.Providers {
		if p.Type == "env" {
			return secrets.NewEnvProvider(p.Prefix).EnvVar(auth.SecretName), auth.Header
		}
	}
	return "", auth.Header
}

// newAPIKey returns n random bytes in the requested encoding.
func newAPIKey(n int, encoding string) (string, error) {
	if n < 16 || n > 128 {
		return "", fmt.Errorf("invalid key size %d (must be 16-128 bytes)", n)
	}

	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	switch encoding {
	case "base64url":
		return base64.RawURLEncoding.EncodeToString(buf), nil
	case "hex":
		return hex.EncodeToString(buf), nil
	default:
		return "", fmt.Errorf("invalid encoding %q (must be base64url or hex)", encoding)
	}
}

func generateKey(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(keysFlags.output)
	if err != nil {
		return err
	}

	key, err := newAPIKey(keysFlags.bytes, keysFlags.encoding)
	if err != nil {
		return err
	}

	envVar, header := keyTarget()
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), generatedKey{
		Key:      key,
		Encoding: keysFlags.encoding,
		Bits:     keysFlags.bytes * 8,
		EnvVar:   envVar,
		Header:   header,
	})
}
