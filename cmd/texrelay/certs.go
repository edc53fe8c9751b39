package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	certs "texrelay-hq/texrelay/pkg/security/tls"
)

var certsFlags struct {
	hosts    string
	org      string
	validity int
	keySize  int
	output   string
}

var certsCmd = &cobra.Command{
	Use:   "certs",
	Short: "Manage TLS certificates",
	Long: `Utilities for the certificates used when proxy.tls.enabled is set.

Subcommands:
  generate - Generate a self-signed certificate for development`,
}

var certsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate self-signed certificate",
	Long: `Generate a self-signed TLS certificate and private key for local HTTPS.

The key file is written with 0600 permissions. The pair is loaded back
through the same loader the server uses before the command reports success.

⚠️  Self-signed certificates are for development only.

Examples:
  # Certificate for localhost
  texrelay certs generate

  # Multiple hosts
  texrelay certs generate --host "localhost,127.0.0.1,tex.local"

  # Custom parameters
  texrelay certs generate --validity 30 --key-size 3072 --output certs/`,
	RunE: generateCertificate,
}

func init() {
	rootCmd.AddCommand(certsCmd)
	certsCmd.AddCommand(certsGenerateCmd)

	certsGenerateCmd.Flags().StringVar(&certsFlags.hosts, "host", "localhost,127.0.0.1", "comma-separated hostnames and IPs")
	certsGenerateCmd.Flags().StringVar(&certsFlags.org, "org", "texrelay", "organization name")
	certsGenerateCmd.Flags().IntVar(&certsFlags.validity, "validity", 365, "validity in days")
	certsGenerateCmd.Flags().IntVar(&certsFlags.keySize, "key-size", 2048, "RSA key size (2048, 3072, 4096)")
	certsGenerateCmd.Flags().StringVarP(&certsFlags.output, "output", "o", "certs", "output directory")
}

type certOptions struct {
	hosts    []string
	org      string
	validity int
	keySize  int
	dir      string
}

// writeSelfSigned creates cert.pem and key.pem in opts.dir.
func writeSelfSigned(opts certOptions) (certPath, keyPath string, err error) {
	if opts.keySize != 2048 && opts.keySize != 3072 && opts.keySize != 4096 {
		return "", "", fmt.Errorf("invalid key size: %d (must be 2048, 3072, or 4096)", opts.keySize)
	}
	if opts.validity <= 0 {
		return "", "", fmt.Errorf("invalid validity: %d days", opts.validity)
	}
	if len(opts.hosts) == 0 {
		return "", "", fmt.Errorf("at least one host is required")
	}

	var dnsNames []string
	var ipAddresses []net.IP
	for _, host := range opts.hosts {
		if ip := net.ParseIP(host); ip != nil {
			ipAddresses = append(ipAddresses, ip)
		} else {
			dnsNames = append(dnsNames, host)
		}
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, opts.keySize)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate serial number: %w", err)
	}

	notBefore := time.Now().Add(-time.Minute)
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{opts.org},
			CommonName:   opts.hosts[0],
		},
		NotBefore:             notBefore,
		NotAfter:              notBefore.AddDate(0, 0, opts.validity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              dnsNames,
		IPAddresses:           ipAddresses,
	}

	derBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return "", "", fmt.Errorf("failed to create certificate: %w", err)
	}

	if err := os.MkdirAll(opts.dir, 0750); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}

	certPath = filepath.Join(opts.dir, "cert.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: derBytes})
	// #nosec G306 - certificates are public
	if err := os.WriteFile(certPath, certPEM, 0644); err != nil {
		return "", "", fmt.Errorf("failed to write certificate: %w", err)
	}

	keyPath = filepath.Join(opts.dir, "key.pem")
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privateKey)})
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		return "", "", fmt.Errorf("failed to write private key: %w", err)
	}

	return certPath, keyPath, nil
}

func generateCertificate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	var hosts []string
	for _, h := range strings.Split(certsFlags.hosts, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}

	fmt.Fprintf(out, "Generating %d-bit RSA self-signed certificate...\n", certsFlags.keySize)
	certPath, keyPath, err := writeSelfSigned(certOptions{
		hosts:    hosts,
		org:      certsFlags.org,
		validity: certsFlags.validity,
		keySize:  certsFlags.keySize,
		dir:      certsFlags.output,
	})
	if err != nil {
		return err
	}

	if err := certs.NewCertificateReloader(certPath, keyPath).Load(); err != nil {
		return fmt.Errorf("generated certificate does not load: %w", err)
	}

	fmt.Fprintf(out, "✓ Certificate: %s\n", certPath)
	fmt.Fprintf(out, "✓ Private key: %s\n", keyPath)
	fmt.Fprintf(out, "  Hosts: %s, valid %d days\n\n", strings.Join(hosts, ", "), certsFlags.validity)
	fmt.Fprintln(out, "⚠️  Self-signed certificates are for development only")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Add to config.yaml:")
	fmt.Fprintln(out, "proxy:")
	fmt.Fprintln(out, "  tls:")
	fmt.Fprintln(out, "    enabled: true")
	fmt.Fprintf(out, "    cert_file: %q\n", certPath)
	fmt.Fprintf(out, "    key_file: %q\n", keyPath)
	fmt.Fprintln(out, "    watch_certs: true")

	return nil
}
