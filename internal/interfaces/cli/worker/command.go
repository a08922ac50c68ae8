package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/cipherboy/candlepin/internal/infrastructure/scheduler"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/interfaces/container"
	"github.com/cipherboy/candlepin/internal/shared/goroutine"
)

func NewCommand(f *runtime.Flags) *cobra.Command {
	var (
		metricsAddr string
		runOnce     bool
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the expiry sweep and periodic reconciliation",
		Long:  `Run the scheduler that moves subscriptions through CREATED, ACTIVE and EXPIRED and refreshes every owner's pools. Domain events are written to the audit log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rt, err := runtime.Open(ctx, f, container.Options{Registerer: prometheus.DefaultRegisterer})
			if err != nil {
				return err
			}
			defer rt.Close()

			log := rt.Log.Named("worker")
			c := rt.Container
			if err := container.SubscribeAuditLog(c.Dispatcher, rt.Log); err != nil {
				return fmt.Errorf("failed to subscribe audit log: %w", err)
			}

			expire := scheduler.BatchJobFunc(c.Subscriptions.ExpireSubscriptions)
			reconcile := scheduler.BatchJobFunc(c.Reconciler.ReconcileAll)

			if runOnce {
				swept, err := expire.Execute(ctx)
				if err != nil {
					return err
				}
				owners, err := reconcile.Execute(ctx)
				if err != nil {
					return err
				}
				log.Infow("maintenance pass completed", "status_changes", swept, "owners", owners)
				return nil
			}

			sched, err := scheduler.NewSchedulerManager(log)
			if err != nil {
				return fmt.Errorf("failed to create scheduler: %w", err)
			}
			cfg := rt.Config.Reconciler
			if err := sched.RegisterSubscriptionJobs(expire, cfg.ExpiryInterval); err != nil {
				return fmt.Errorf("failed to register expiry job: %w", err)
			}
			if err := sched.RegisterReconcileJobs(reconcile, cfg.ReconcileInterval); err != nil {
				return fmt.Errorf("failed to register reconcile job: %w", err)
			}

			var srv *http.Server
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				srv = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
				goroutine.SafeGo(log, "metrics-listener", func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Errorw("metrics listener failed", "error", err)
					}
				})
				log.Infow("serving metrics", "address", metricsAddr)
			}

			sched.Start()
			log.Infow("worker started",
				"environment", rt.Env,
				"expiry_interval", cfg.ExpiryInterval,
				"reconcile_interval", cfg.ReconcileInterval,
				"pid", os.Getpid(),
			)

			<-ctx.Done()
			log.Infow("shutting down worker")

			if srv != nil {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Warnw("failed to stop metrics listener", "error", err)
				}
			}
			if err := sched.Stop(); err != nil {
				log.Warnw("failed to stop scheduler", "error", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus listen address (empty disables)")
	cmd.Flags().BoolVar(&runOnce, "once", false, "Run one expiry sweep and one reconcile pass, then exit")
	return cmd
}
