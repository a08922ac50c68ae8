// Package commands holds the resource commands of the candlepin CLI. Each
// command goes through the access mediator as the caller named by --as.
package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	certdto "github.com/cipherboy/candlepin/internal/application/entitlement/dto"
	pooldto "github.com/cipherboy/candlepin/internal/application/pool/dto"
	subdto "github.com/cipherboy/candlepin/internal/application/subscription/dto"
	"github.com/cipherboy/candlepin/internal/interfaces/cli/runtime"
	"github.com/cipherboy/candlepin/internal/interfaces/container"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
)

type action func(ctx context.Context, rt *runtime.Runtime, p *runtime.Printer) error

// withRuntime opens a runtime for one command invocation. One-shot commands
// register metrics on a private registry; only the worker exports them.
func withRuntime(cmd *cobra.Command, f *runtime.Flags, fn action) error {
	p, err := runtime.NewPrinter(f.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := runtime.Open(ctx, f, container.Options{Registerer: prometheus.NewRegistry()})
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(ctx, rt, p)
}

func parseUint(s, what string) (uint, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s %q", what, s)
	}
	return uint(v), nil
}

func parseSerial(s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid serial %q", s)
	}
	return v, nil
}

// optionalDate parses a date flag, returning nil when the flag is unset.
func optionalDate(cmd *cobra.Command, name, value string) (*time.Time, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	t, err := biztime.ParseDate(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return biztime.Format(t)
}

func poolTable(pools ...*pooldto.PoolDTO) runtime.Table {
	t := runtime.Table{Header: []string{"ID", "SUBSCRIPTION", "OWNER", "PRODUCT", "QUANTITY", "CONSUMED", "CAPACITY", "STATUS", "START", "END"}}
	for _, p := range pools {
		t.Rows = append(t.Rows, []string{
			strconv.FormatUint(uint64(p.ID), 10),
			strconv.FormatUint(uint64(p.SubscriptionID), 10),
			p.OwnerKey,
			p.ProductID,
			strconv.FormatInt(p.Quantity, 10),
			strconv.FormatInt(p.Consumed, 10),
			p.CapacityState,
			p.Status,
			formatTime(p.StartDate),
			formatTime(p.EndDate),
		})
	}
	return t
}

func subscriptionTable(subs ...*subdto.SubscriptionDTO) runtime.Table {
	t := runtime.Table{Header: []string{"OWNER", "PRODUCT", "QUANTITY", "STATUS", "START", "END", "CONTRACT"}}
	for _, s := range subs {
		t.Rows = append(t.Rows, []string{
			s.OwnerKey,
			s.ProductID,
			strconv.FormatInt(s.Quantity, 10),
			s.Status,
			formatTime(s.StartDate),
			formatTime(s.EndDate),
			s.ContractNumber,
		})
	}
	return t
}

func certificateTable(certs ...*certdto.CertificateDTO) runtime.Table {
	t := runtime.Table{Header: []string{"SERIAL", "POOL", "CONSUMER", "KIND", "ISSUED", "EXPIRES", "REVOKED"}}
	for _, c := range certs {
		t.Rows = append(t.Rows, []string{
			strconv.FormatInt(c.Serial, 10),
			strconv.FormatUint(uint64(c.PoolID), 10),
			c.ConsumerID,
			c.Kind,
			formatTime(c.IssuedAt),
			formatTime(c.ExpiresAt),
			strconv.FormatBool(c.Revoked),
		})
	}
	return t
}

// pemTable prints a single PEM block, or the certificate followed by its key.
func pemTable(blocks ...string) runtime.Table {
	var t runtime.Table
	for _, b := range blocks {
		if b == "" {
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(b, "\n"), "\n") {
			t.Rows = append(t.Rows, []string{line})
		}
	}
	return t
}
