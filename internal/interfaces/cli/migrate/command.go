package migrate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/infrastructure/migration"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

func NewCommand(f *runtime.Flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Manage database migrations including running migrations, checking status, and creating new migration files.`,
	}

	cmd.AddCommand(
		newUpCommand(f),
		newDownCommand(f),
		newStatusCommand(f),
		newCreateCommand(),
	)

	return cmd
}

func newUpCommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		Long:  `Bring the schema up to date: AutoMigrate in development and test, the versioned goose scripts in production.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtime.Init(f)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.Log.Infow("running up migrations", "environment", rt.Env)
			if err := migration.NewManager(rt.Env, rt.Log).Migrate(rt.DB); err != nil {
				return err
			}
			rt.Log.Infow("migrations completed successfully")
			return nil
		},
	}
}

func newDownCommand(f *runtime.Flags) *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		Long:  `Rollback a specified number of versioned migrations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtime.Init(f)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.Log.Infow("running down migrations", "environment", rt.Env, "steps", steps)
			if err := migration.NewGooseStrategy(rt.Log).MigrateDown(rt.DB, steps); err != nil {
				rt.Log.Errorw("down migration failed", "error", err)
				return fmt.Errorf("down migration failed: %w", err)
			}
			rt.Log.Infow("down migration completed successfully")
			return nil
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")
	return cmd
}

func newStatusCommand(f *runtime.Flags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Display the current versioned migration of the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtime.Init(f)
			if err != nil {
				return err
			}
			defer rt.Close()

			version, err := migration.NewGooseStrategy(rt.Log).GetVersion(rt.DB)
			if err != nil {
				rt.Log.Errorw("failed to get migration version", "error", err)
				return fmt.Errorf("failed to get migration version: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nMigration Status:\n")
			fmt.Fprintf(out, "  Environment:     %s\n", rt.Env)
			fmt.Fprintf(out, "  Driver:          %s\n", rt.Config.Database.Driver)
			fmt.Fprintf(out, "  Current Version: %d\n", version)
			return nil
		},
	}
}

// newCreateCommand writes new script files into the source tree; it needs no
// database.
func newCreateCommand() *cobra.Command {
	var name, scriptsDir string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		Long:  `Create new goose migration files, one per supported driver, with the specified name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptsPath, err := filepath.Abs(scriptsDir)
			if err != nil {
				return fmt.Errorf("failed to get scripts path: %w", err)
			}

			files, err := migration.NewGenerator(scriptsPath, logger.NewLogger()).CreateMigration(name, biztime.NowUTC())
			if err != nil {
				return fmt.Errorf("failed to create migration: %w", err)
			}
			for _, file := range files {
				fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", file)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	cmd.Flags().StringVar(&scriptsDir, "scripts", "./internal/infrastructure/migration/scripts", "Migration scripts directory")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
