package cli

import (
	"github.com/spf13/cobra"

	"github.com/statembed/statembed/internal/pipeline"
	"github.com/statembed/statembed/internal/render"
)

func newEmbedCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Load the table, print its rows, embed them and print the vectors",
		Long: `Load every data row of the configured file, print the rows, request
embeddings from the configured model and print the vectors.

In per-row mode (default) each row is embedded separately and one vector is
printed per row. In whole mode the entire row sequence is sent as a single
input and one vector is printed.

Examples:
  statembed embed --file player-per-game.csv
  statembed embed --model mxbai-embed-large --format json
  statembed embed --mode whole`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			r, err := render.Lookup(cfg.Output.Format)
			if err != nil {
				return err
			}
			emb, err := buildEmbedder(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			_, err = pipeline.Run(ctx, pipeline.Options{
				Path:     cfg.File.Path,
				Loader:   loaderOptions(cfg),
				Mode:     pipeline.Mode(cfg.Embed.Mode),
				Renderer: r,
				Logger:   st.log,
				Progress: spinner(cmd.ErrOrStderr(), cfg.Output.Progress),
			}, emb, cmd.OutOrStdout())
			return explain(cfg, err)
		},
	}
}
