// Package cli assembles the candlepin command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/interfaces/cli/commands"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/migrate"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/worker"
)

// NewRootCommand builds the root command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	flags := &runtime.Flags{}

	root := &cobra.Command{
		Use:           "candlepin",
		Short:         "Candlepin - subscription, pool and entitlement engine",
		Long:          `Candlepin reconciles subscriptions into consumable pools and issues, tracks and revokes entitlement certificates.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.Bind(root)

	root.AddCommand(
		migrate.NewCommand(flags),
		worker.NewCommand(flags),
		commands.NewSubscriptionCommand(flags),
		commands.NewPoolCommand(flags),
		commands.NewEntitlementCommand(flags),
		commands.NewCertCommand(flags),
		commands.NewRoleCommand(flags),
		commands.NewOwnerCommand(flags),
		commands.NewProductCommand(flags),
	)
	return root
}
