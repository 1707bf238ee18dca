package cli

import (
	"github.com/spf13/cobra"

	"github.com/statembed/statembed/internal/server"
)

func newServeCmd(st *state) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer questions over HTTP",
		Long: `Start an HTTP server over the loaded table.

Endpoints:
  GET /ask?question=...          answer from the nearest rows
  GET /nearest?question=...&k=N  nearest rows only
  GET /healthz                   liveness

Press Ctrl-C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			svc, closeFn, err := newService(st)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			// Rows are embedded up front; a failure here is retried on the
			// first request.
			if err := svc.Index(ctx); err != nil {
				st.log.Warn("initial indexing failed", "err", explain(cfg, err))
			}

			srv := server.New(svc, server.Config{
				Addr:          cfg.Server.Addr,
				RatePerSecond: cfg.Server.RatePerSecond,
				Burst:         cfg.Server.Burst,
				Logger:        st.log,
			})
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")

	return cmd
}
