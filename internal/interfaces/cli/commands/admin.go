package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/domain/owner"
	vo "github.com/cipherboy/candlepin/internal/domain/permission/value_objects"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/shared/errors"
)

// NewRoleCommand manages casbin role assignments.
func NewRoleCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "role",
		Short: "Grant and revoke caller roles (admin, owner, consumer)",
	}

	grant := &cobra.Command{
		Use:   "grant <subject> <role>",
		Short: "Grant a role to a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				if err := requireAdmin(ctx, rt, f); err != nil {
					return err
				}
				if err := rt.Container.Permissions.GrantRole(ctx, args[0], args[1]); err != nil {
					return err
				}
				return printRoles(ctx, rt, p, args[0])
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <subject> <role>",
		Short: "Revoke a role from a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				if err := requireAdmin(ctx, rt, f); err != nil {
					return err
				}
				if err := rt.Container.Permissions.RevokeRole(ctx, args[0], args[1]); err != nil {
					return err
				}
				return printRoles(ctx, rt, p, args[0])
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <subject>",
		Short: "Show a subject's roles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				return printRoles(ctx, rt, p, args[0])
			})
		},
	}

	cmd.AddCommand(grant, revoke, show)
	return cmd
}

func printRoles(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer, subject string) error {
	roles, err := rt.Container.Permissions.GetRoles(ctx, subject)
	if err != nil {
		return err
	}
	return p.Print(map[string]any{"subject": subject, "roles": roles}, runtime.Table{
		Header: []string{"SUBJECT", "ROLES"},
		Rows:   [][]string{{subject, strings.Join(roles, ",")}},
	})
}

func requireAdmin(ctx context.Context, rt *runtime.Runtime, f *runtime.Flags) error {
	admin, err := rt.Container.Permissions.IsAdmin(ctx, f.Subject)
	if err != nil {
		return err
	}
	if !admin {
		return errors.NewForbiddenError("admin role required", fmt.Sprintf("%s is not an admin", f.Subject))
	}
	return nil
}

// NewOwnerCommand seeds owners. Owners are otherwise read-only to the engine.
func NewOwnerCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "owner",
		Short: "Seed owners",
	}

	var displayName string
	create := &cobra.Command{
		Use:   "create <key>",
		Short: "Create an owner and grant it the owner role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				if err := requireAdmin(ctx, rt, f); err != nil {
					return err
				}
				o, err := owner.NewOwner(args[0], displayName)
				if err != nil {
					return errors.NewValidationError(err.Error())
				}
				if err := rt.Container.Owners.Create(ctx, o); err != nil {
					return err
				}
				if err := rt.Container.Permissions.GrantRole(ctx, o.Key(), vo.RoleOwner.String()); err != nil {
					return err
				}
				return p.Print(map[string]string{"key": o.Key(), "display_name": o.DisplayName()}, runtime.Table{
					Header: []string{"KEY", "DISPLAY_NAME"},
					Rows:   [][]string{{o.Key(), o.DisplayName()}},
				})
			})
		},
	}
	create.Flags().StringVar(&displayName, "name", "", "Display name")

	cmd.AddCommand(create)
	return cmd
}

// NewProductCommand seeds and adjusts catalog products.
func NewProductCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Seed catalog products",
	}

	var (
		name       string
		multiplier int64
		attrs      map[string]string
	)
	create := &cobra.Command{
		Use:   "create <id>",
		Short: "Create a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var m *int64
			if cmd.Flags().Changed("multiplier") {
				m = &multiplier
			}
			return withRuntime(cmd, f, func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error {
				if err := requireAdmin(ctx, rt, f); err != nil {
					return err
				}
				if name == "" {
					name = args[0]
				}
				prod, err := product.NewProduct(args[0], name, m, attrs)
				if err != nil {
					return errors.NewValidationError(err.Error())
				}
				if err := rt.Container.Products.Create(ctx, prod); err != nil {
					return err
				}
				return printProduct(p, prod)
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "Product name (default: the id)")
	create.Flags().Int64Var(&multiplier, "multiplier", 1, "Units per purchased quantity")
	create.Flags().StringToStringVar(&attrs, "attr", nil, "Product attributes as key=value")

	cmd.AddCommand(create)
	return cmd
}

func printProduct(p *runtime.Printer, prod *product.Product) error {
	multiplier := "-"
	if m := prod.RawMultiplier(); m != nil {
		multiplier = strconv.FormatInt(*m, 10)
	}
	return p.Print(map[string]any{
		"id":         prod.ID(),
		"name":       prod.Name(),
		"multiplier": prod.RawMultiplier(),
		"attributes": prod.Attributes(),
	}, runtime.Table{
		Header: []string{"ID", "NAME", "MULTIPLIER"},
		Rows:   [][]string{{prod.ID(), prod.Name(), multiplier}},
	})
}
