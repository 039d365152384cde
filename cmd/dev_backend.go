package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/oakwood-commons/crmx/internal/fakeapi"
	"github.com/oakwood-commons/crmx/internal/model"
	"github.com/oakwood-commons/crmx/pkg/logger"
)

var (
	devAddr        string
	devRequireAuth bool
	devEnveloped   []string
	devLatency     time.Duration
)

var devBackendCmd = &cobra.Command{
	Use:    "dev-backend",
	Short:  "Serve an in-memory CRM backend with demo data",
	Hidden: true,
	Long: `Serve an in-memory CRM backend with demo data.

Point backend.url (or CRMX_BACKEND_URL) at it and sign in with
demo@example.com / demo1234. Nothing is persisted.`,
	Example: `  crmx dev-backend --addr 127.0.0.1:8080 --enveloped leads,clients`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		lgr := logger.FromContext(ctx)

		api := fakeapi.New()
		api.SeedDemo()
		api.RequireAuth(devRequireAuth)
		for _, raw := range devEnveloped {
			tab, err := model.ParseTab(raw)
			if err != nil {
				return err
			}
			api.SetEnveloped(tab, true)
		}
		if devLatency > 0 {
			for _, tab := range model.KnownTabs {
				api.SetLatency(tab, devLatency)
			}
		}

		ln, err := net.Listen("tcp", devAddr)
		if err != nil {
			return err
		}
		srv := &http.Server{Handler: api, ReadHeaderTimeout: 5 * time.Second}
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Serve(ln) }()

		fmt.Fprintf(cmd.OutOrStdout(), "CRM backend on http://%s (sign in as demo@example.com / demo1234)\n", ln.Addr())
		lgr.Info("dev backend listening", "addr", ln.Addr().String(), "auth", devRequireAuth)

		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

func init() { //nolint:gochecknoinits
	devBackendCmd.Flags().StringVar(&devAddr, "addr", "127.0.0.1:8080", "listen address")
	devBackendCmd.Flags().BoolVar(&devRequireAuth, "require-auth", true, "reject data calls without a signed-in token")
	devBackendCmd.Flags().StringSliceVar(&devEnveloped, "enveloped", nil, "tabs that answer with {result, data} envelopes")
	devBackendCmd.Flags().DurationVar(&devLatency, "latency", 0, "delay every list response")
	rootCmd.AddCommand(devBackendCmd)
}
