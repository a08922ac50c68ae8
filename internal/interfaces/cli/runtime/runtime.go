// Package runtime bootstraps configuration, logging, the database and the
// service container for CLI commands.
package runtime

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	appperm "github.com/cipherboy/candlepin/internal/application/permission"
	"github.com/cipherboy/candlepin/internal/infrastructure/config"
	"github.com/cipherboy/candlepin/internal/infrastructure/database"
	"github.com/cipherboy/candlepin/internal/infrastructure/migration"
	"github.com/cipherboy/candlepin/internal/interfaces/container"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/constants"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// Flags are the persistent flags shared by every command.
type Flags struct {
	Env         string
	ConfigPath  string
	Output      string
	Subject     string
	OwnerKey    string
	AutoMigrate bool
}

// Bind registers the flags on cmd as persistent flags.
func (f *Flags) Bind(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.Env, "env", "e", constants.EnvDevelopment, "Environment (development, test, production)")
	pf.StringVarP(&f.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	pf.StringVarP(&f.Output, "output", "o", FormatTable, "Output format (table, json, yaml)")
	pf.StringVar(&f.Subject, "as", "admin", "Subject to act as")
	pf.StringVar(&f.OwnerKey, "owner-key", "", "Owner the subject is scoped to")
	pf.BoolVar(&f.AutoMigrate, "auto-migrate", false, "Migrate the schema before running (not recommended for production)")
}

// Environment resolves the environment, letting ENV override the flag.
func (f *Flags) Environment() string {
	if v := os.Getenv("ENV"); v != "" {
		return v
	}
	return f.Env
}

// Caller is the identity commands pass to the mediator.
func (f *Flags) Caller() appperm.Caller {
	return appperm.Caller{Subject: f.Subject, OwnerKey: f.OwnerKey}
}

// Runtime is an initialized process: config, logger, database and container.
type Runtime struct {
	Env       string
	Config    *config.Config
	Log       logger.Interface
	DB        *gorm.DB
	Container *container.Container
}

// Init loads configuration, logging and the database without building the
// container.
func Init(f *Flags) (*Runtime, error) {
	env := f.Environment()
	cfg, err := config.Load(env, f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	if err := biztime.Init(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	rt := &Runtime{Env: env, Config: cfg, Log: log, DB: database.Get()}
	if f.AutoMigrate {
		if err := migration.NewManager(env, log).Migrate(rt.DB); err != nil {
			rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// Open is Init plus the service container.
func Open(ctx context.Context, f *Flags, opts container.Options) (*Runtime, error) {
	rt, err := Init(f)
	if err != nil {
		return nil, err
	}
	c, err := container.New(ctx, rt.Config, rt.DB, rt.Log, opts)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to build services: %w", err)
	}
	rt.Container = c
	return rt, nil
}

// Close releases everything Open acquired.
func (rt *Runtime) Close() {
	if rt.Container != nil {
		rt.Container.Shutdown()
	}
	if err := database.Close(); err != nil {
		rt.Log.Warnw("failed to close database", "error", err)
	}
	_ = logger.Sync()
}
