package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/statembed/statembed/internal/loader"
	"github.com/statembed/statembed/internal/prompt"
	"github.com/statembed/statembed/internal/render"
)

func newLoadCmd(st *state) *cobra.Command {
	var tokens bool

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the table and print its rows without embedding",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			r, err := render.Lookup(cfg.Output.Format)
			if err != nil {
				return err
			}
			records, err := loader.Load(cfg.File.Path, loaderOptions(cfg))
			if err != nil {
				return err
			}
			if err := r.Records(cmd.OutOrStdout(), records); err != nil {
				return err
			}
			if !tokens {
				return nil
			}

			tok, err := prompt.NewTokenizer()
			if err != nil {
				return err
			}
			var total, largest int
			for _, rec := range records {
				n := tok.Count(rec.Text())
				total += n
				largest = max(largest, n)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d rows, %d tokens (largest row %d, whole input %d)\n",
				len(records), total, largest, tok.Count(loader.Join(records)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&tokens, "tokens", false, "report approximate token counts on stderr")

	return cmd
}
