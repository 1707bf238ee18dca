package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/statembed/statembed/internal/mcp"
)

func newMCPCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the table as MCP tools over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing the
list_records, nearest_rows and ask tools.

Logs go to stderr; stdout carries only protocol messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newService(st)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			return mcp.NewServer(svc, version).Serve(ctx, os.Stdin, os.Stdout, cmd.ErrOrStderr())
		},
	}
}
