package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
)

func NewEntitlementCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entitlement",
		Short: "Issue, inspect and revoke entitlement certificates",
	}

	cmd.AddCommand(
		newEntitlementIssueCommand(f),
		newEntitlementShowCommand(f),
		newEntitlementListCommand(f),
		newEntitlementRevokeCommand(f),
	)
	return cmd
}

func newEntitlementIssueCommand(f *runtime.Flags) *cobra.Command {
	var (
		poolID       uint
		consumerID   string
		requestToken string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Consume one unit of a pool and issue a certificate",
		Long:  `Issue an entitlement certificate. Re-running with the same --token returns the certificate issued the first time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				cert, err := rt.Container.Mediator.IssueEntitlement(ctx, f.Caller(), poolID, consumerID, requestToken)
				if err != nil {
					return err
				}
				if f.Output == runtime.FormatTable {
					return p.Print(cert, pemTable(cert.CertificatePEM, cert.PrivateKeyPEM))
				}
				return p.Print(cert, certificateTable(cert))
			})
		},
	}

	fl := cmd.Flags()
	fl.UintVar(&poolID, "pool", 0, "Pool id (required)")
	fl.StringVar(&consumerID, "consumer", "", "Consumer id (required)")
	fl.StringVar(&requestToken, "token", "", "Idempotency token")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("consumer")
	return cmd
}

func newEntitlementShowCommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <serial>",
		Short: "Show a certificate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := parseSerial(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				cert, err := rt.Container.Mediator.GetCertificate(ctx, f.Caller(), serial)
				if err != nil {
					return err
				}
				return p.Print(cert, certificateTable(cert))
			})
		},
	}
}

func newEntitlementListCommand(f *runtime.Flags) *cobra.Command {
	var (
		poolID     uint
		consumerID string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a consumer's certificates in a pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				certs, err := rt.Container.Mediator.ListCertificates(ctx, f.Caller(), poolID, consumerID)
				if err != nil {
					return err
				}
				return p.Print(certs, certificateTable(certs...))
			})
		},
	}

	cmd.Flags().UintVar(&poolID, "pool", 0, "Pool id (required)")
	cmd.Flags().StringVar(&consumerID, "consumer", "", "Consumer id (required)")
	_ = cmd.MarkFlagRequired("pool")
	_ = cmd.MarkFlagRequired("consumer")
	return cmd
}

func newEntitlementRevokeCommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <serial>",
		Short: "Revoke a certificate and release its unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serial, err := parseSerial(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				cert, err := rt.Container.Mediator.RevokeCertificate(ctx, f.Caller(), serial)
				if err != nil {
					return err
				}
				return p.Print(cert, certificateTable(cert))
			})
		},
	}
}
