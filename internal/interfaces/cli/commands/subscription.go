package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/interfaces/mediator"
)

func NewSubscriptionCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subscription",
		Short: "Create and list subscriptions",
		Long:  `Subscriptions are created per owner and listed per owner. They are never addressed by id; use the pool commands for everything else.`,
	}

	cmd.AddCommand(
		newSubscriptionCreateCommand(f),
		newSubscriptionListCommand(f),
	)
	return cmd
}

func newSubscriptionCreateCommand(f *runtime.Flags) *cobra.Command {
	var (
		req        mediator.CreateSubscriptionRequest
		start, end string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a subscription and derive its pool",
		Long:  `Create a subscription for an owner. The derived pool is printed; its subscription_id correlates the two.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.StartDate, err = optionalDate(cmd, "start", start); err != nil {
				return err
			}
			if req.EndDate, err = optionalDate(cmd, "end", end); err != nil {
				return err
			}

			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				pool, err := rt.Container.Mediator.CreateSubscription(ctx, f.Caller(), req)
				if err != nil {
					return err
				}
				return p.Print(pool, poolTable(pool))
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&req.OwnerKey, "owner", "", "Owner key (required)")
	fl.StringVar(&req.ProductID, "product", "", "Product id (required)")
	fl.Int64VarP(&req.Quantity, "quantity", "q", 1, "Purchased quantity")
	fl.StringSliceVar(&req.ProvidedProductIDs, "provided", nil, "Provided product ids")
	fl.StringVar(&req.ContractNumber, "contract", "", "Contract number")
	fl.StringVar(&req.AccountNumber, "account", "", "Account number")
	fl.StringVar(&req.OrderNumber, "order", "", "Order number")
	fl.StringVar(&start, "start", "", "Start date (YYYY-MM-DD or RFC 3339, default now)")
	fl.StringVar(&end, "end", "", "End date (default start plus the configured term)")
	fl.BoolVar(&req.GenerateCert, "generate-cert", false, "Issue a pool certificate bundle")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("product")

	return cmd
}

func newSubscriptionListCommand(f *runtime.Flags) *cobra.Command {
	var ownerKey string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				subs, err := rt.Container.Mediator.ListSubscriptions(ctx, f.Caller(), ownerKey)
				if err != nil {
					return err
				}
				return p.Print(subs, subscriptionTable(subs...))
			})
		},
	}

	cmd.Flags().StringVar(&ownerKey, "owner", "", "Owner key (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
