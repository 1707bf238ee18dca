package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(st *state) *cobra.Command {
	var (
		topK       int
		showRows   bool
		showPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question using the rows nearest to it",
		Long: `Embed every row, find the rows nearest to the question and send them
with the question to the completion model.

Examples:
  statembed ask "Who averaged the most points per game?"
  statembed ask "Compare the two best rebounders" --k 2 --rows`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			if topK > 0 {
				st.cfg.Ask.TopK = topK
			}

			svc, closeFn, err := newService(st)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			ans, err := svc.Answer(ctx, question)
			if err != nil {
				return explain(st.cfg, err)
			}

			errOut := cmd.ErrOrStderr()
			if showRows {
				fmt.Fprintln(errOut, "=== Nearest rows ===")
				for _, m := range ans.Matches {
					fmt.Fprintf(errOut, "  %.3f  %s\n", m.Similarity, m.Record)
				}
				fmt.Fprintln(errOut)
			}
			if showPrompt {
				fmt.Fprintln(errOut, "=== Prompt ===")
				fmt.Fprintln(errOut, ans.Prompt.Text)
				fmt.Fprintf(errOut, "(%d tokens)\n\n", ans.Prompt.Tokens)
			}

			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(ans.Response))
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "k", 0, "number of nearest rows to use (default from config)")
	cmd.Flags().BoolVar(&showRows, "rows", false, "print the nearest rows to stderr")
	cmd.Flags().BoolVar(&showPrompt, "show-prompt", false, "print the prompt to stderr")

	return cmd
}
