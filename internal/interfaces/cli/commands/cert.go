package commands

import (
	"context"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/infrastructure/pki"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
)

func NewCertCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cert",
		Short: "Revocation list, OCSP status and CA tools",
	}

	cmd.AddCommand(
		newCertCRLCommand(f),
		newCertStatusCommand(f),
		newCertCACommand(f),
		newCertInitCACommand(),
	)
	return cmd
}

func newCertCRLCommand(f *runtime.Flags) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "crl",
		Short: "Print the signed revocation list",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				crl, err := rt.Container.Mediator.RevocationList(ctx, f.Caller())
				if err != nil {
					return err
				}
				if out != "" {
					if err := os.WriteFile(out, crl.DER, 0o644); err != nil {
						return fmt.Errorf("failed to write crl: %w", err)
					}
					rt.Log.Infow("revocation list written", "path", out, "entries", crl.Entries)
				}
				block := pem.EncodeToMemory(&pem.Block{Type: "X509 CRL", Bytes: crl.DER})
				return p.Print(crl, pemTable(string(block)))
			})
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Also write the DER encoded list to this file")
	return cmd
}

func newCertStatusCommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <serial>",
		Short: "Show the OCSP status of a serial",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := parseSerial(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				status, err := rt.Container.Mediator.CertificateStatus(ctx, f.Caller(), serial)
				if err != nil {
					return err
				}
				revokedAt := "-"
				if status.RevokedAt != nil {
					revokedAt = formatTime(*status.RevokedAt)
				}
				return p.Print(status, runtime.Table{
					Header: []string{"SERIAL", "STATUS", "REVOKED_AT"},
					Rows:   [][]string{{strconv.FormatInt(status.Serial, 10), status.Status, revokedAt}},
				})
			})
		},
	}
}

func newCertCACommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "ca",
		Short: "Print the issuing CA certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				ca := rt.Container.Mediator.CACertificate()
				return p.Print(map[string]string{"certificate": ca}, pemTable(ca))
			})
		},
	}
}

// newCertInitCACommand needs no database, so it does not open a runtime.
func newCertInitCACommand() *cobra.Command {
	var (
		certOut, keyOut, curveName, commonName string
		validityDays                           int
	)

	cmd := &cobra.Command{
		Use:   "init-ca",
		Short: "Generate a signing CA for pki.ca_cert_path and pki.ca_key_path",
		RunE: func(cmd *cobra.Command, args []string) error {
			curve, err := pki.ParseCurve(curveName)
			if err != nil {
				return err
			}
			certPEM, keyPEM, err := pki.GenerateCA(commonName, curve,
				time.Duration(validityDays)*24*time.Hour, biztime.NowUTC())
			if err != nil {
				return err
			}
			if err := os.WriteFile(certOut, []byte(certPEM), 0o644); err != nil {
				return fmt.Errorf("failed to write ca certificate: %w", err)
			}
			if err := os.WriteFile(keyOut, []byte(keyPEM), 0o600); err != nil {
				return fmt.Errorf("failed to write ca key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "CA written to %s and %s\n", certOut, keyOut)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&certOut, "cert-out", "ca.pem", "CA certificate output path")
	fl.StringVar(&keyOut, "key-out", "ca-key.pem", "CA private key output path")
	fl.StringVar(&curveName, "curve", "P256", "Key curve (P256, P384, P521)")
	fl.StringVar(&commonName, "cn", "Candlepin Entitlement CA", "CA common name")
	fl.IntVar(&validityDays, "validity-days", 3650, "CA validity in days")
	return cmd
}
