package commands

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/interfaces/mediator"
)

func NewPoolCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Inspect and manage pools",
		Long:  `Pools are the addressable view of subscriptions. Updating or deleting a pool amends or deletes the subscription behind it.`,
	}

	cmd.AddCommand(
		newPoolShowCommand(f),
		newPoolListCommand(f),
		newPoolUpdateCommand(f),
		newPoolDeleteCommand(f),
		newPoolCertCommand(f),
	)
	return cmd
}

func newPoolShowCommand(f *runtime.Flags) *cobra.Command {
	var availability bool

	cmd := &cobra.Command{
		Use:   "show <pool-id>",
		Short: "Show a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			poolID, err := parseUint(args[0], "pool id")
			if err != nil {
				return err
			}
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				if availability {
					a, err := rt.Container.Mediator.PoolAvailability(ctx, f.Caller(), poolID)
					if err != nil {
						return err
					}
					return p.Print(a, runtime.Table{
						Header: []string{"ID", "QUANTITY", "CONSUMED", "AVAILABLE", "CAPACITY", "STATUS"},
						Rows: [][]string{{
							strconv.FormatUint(uint64(a.PoolID), 10),
							strconv.FormatInt(a.Quantity, 10),
							strconv.FormatInt(a.Consumed, 10),
							strconv.FormatInt(a.Available, 10),
							a.CapacityState,
							a.Status,
						}},
					})
				}
				pool, err := rt.Container.Mediator.GetPool(ctx, f.Caller(), poolID)
				if err != nil {
					return err
				}
				return p.Print(pool, poolTable(pool))
			})
		},
	}

	cmd.Flags().BoolVar(&availability, "availability", false, "Show the cached capacity view only")
	return cmd
}

func newPoolListCommand(f *runtime.Flags) *cobra.Command {
	var ownerKey string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List an owner's pools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				pools, err := rt.Container.Mediator.ListPools(ctx, f.Caller(), ownerKey)
				if err != nil {
					return err
				}
				return p.Print(pools, poolTable(pools...))
			})
		},
	}

	cmd.Flags().StringVar(&ownerKey, "owner", "", "Owner key (required)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func newPoolUpdateCommand(f *runtime.Flags) *cobra.Command {
	var (
		quantity   int64
		start, end string
		provided   []string
	)

	cmd := &cobra.Command{
		Use:   "update <pool-id>",
		Short: "Amend the subscription behind a pool",
		Long:  `Amend quantity, dates or provided products. A quantity below current consumption is kept and reported as over-consumed.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			poolID, err := parseUint(args[0], "pool id")
			if err != nil {
				return err
			}

			var req mediator.UpdatePoolRequest
			if cmd.Flags().Changed("quantity") {
				req.Quantity = &quantity
			}
			if req.StartDate, err = optionalDate(cmd, "start", start); err != nil {
				return err
			}
			if req.EndDate, err = optionalDate(cmd, "end", end); err != nil {
				return err
			}
			if cmd.Flags().Changed("provided") {
				req.ProvidedProductIDs = provided
			}

			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				result, err := rt.Container.Mediator.UpdatePool(ctx, f.Caller(), poolID, req)
				if err != nil {
					return err
				}
				if result.OverConsumed {
					rt.Log.Warnw("pool is over-consumed",
						"pool_id", poolID,
						"quantity", result.Pool.Quantity,
						"consumed", result.Pool.Consumed,
					)
				}
				return p.Print(result, poolTable(result.Pool))
			})
		},
	}

	fl := cmd.Flags()
	fl.Int64VarP(&quantity, "quantity", "q", 0, "New purchased quantity")
	fl.StringVar(&start, "start", "", "New start date")
	fl.StringVar(&end, "end", "", "New end date")
	fl.StringSliceVar(&provided, "provided", nil, "Replacement provided product ids")
	return cmd
}

func newPoolDeleteCommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pool-id>",
		Short: "Delete a pool's subscription and revoke its certificates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			poolID, err := parseUint(args[0], "pool id")
			if err != nil {
				return err
			}
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				result, err := rt.Container.Mediator.DeletePool(ctx, f.Caller(), poolID)
				if err != nil {
					return err
				}
				t := runtime.Table{Header: []string{"POOL", "SUBSCRIPTION", "REVOKED"}}
				for _, id := range result.PoolIDs {
					t.Rows = append(t.Rows, []string{
						strconv.FormatUint(uint64(id), 10),
						strconv.FormatUint(uint64(result.SubscriptionID), 10),
						strconv.Itoa(result.Revoked),
					})
				}
				return p.Print(result, t)
			})
		},
	}
}

func newPoolCertCommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "cert <pool-id>",
		Short: "Print a pool's certificate bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			poolID, err := parseUint(args[0], "pool id")
			if err != nil {
				return err
			}
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				cert, err := rt.Container.Mediator.GetPoolCertificate(ctx, f.Caller(), poolID)
				if err != nil {
					return err
				}
				return p.Print(cert, pemTable(cert.CertificatePEM, cert.PrivateKeyPEM))
			})
		},
	}
}
