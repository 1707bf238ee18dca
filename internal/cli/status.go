package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/statembed/statembed/internal/adapter"
	"github.com/statembed/statembed/internal/db"
	"github.com/statembed/statembed/internal/loader"
)

func newStatusCmd(st *state) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the input file, the model endpoint and the search index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := st.cfg
			out := cmd.OutOrStdout()
			failed := 0
			check := func(label, detail string, ok bool) {
				mark := "ok"
				if !ok {
					mark = "FAIL"
					failed++
				}
				fmt.Fprintf(out, "%-10s %-4s  %s\n", label+":", mark, detail)
			}

			fmt.Fprintln(out)

			records, err := loader.Load(cfg.File.Path, loaderOptions(cfg))
			switch {
			case err == nil:
				size := int64(0)
				if fi, statErr := os.Stat(cfg.File.Path); statErr == nil {
					size = fi.Size()
				}
				check("File", fmt.Sprintf("%s (%d rows, %s)", cfg.File.Path, len(records), formatBytes(size)), true)
			case errors.Is(err, loader.ErrNotFound):
				check("File", fmt.Sprintf("%s not found", cfg.File.Path), false)
			default:
				check("File", err.Error(), false)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			if cfg.Embed.Provider == adapter.ProviderOllama || cfg.Completion.Provider == adapter.ProviderOllama {
				models, err := adapter.ListOllamaModels(ctx, cfg.Ollama.Host)
				if err != nil {
					check("Ollama", fmt.Sprintf("%s unreachable: %v", cfg.Ollama.Host, err), false)
				} else {
					check("Ollama", fmt.Sprintf("%s (%d models)", cfg.Ollama.Host, len(models)), true)
					if cfg.Embed.Provider == adapter.ProviderOllama {
						checkModel(check, "Embed", cfg.Embed.Model, models)
					}
					if cfg.Completion.Provider == adapter.ProviderOllama {
						checkModel(check, "Chat", cfg.Completion.Model, models)
					}
				}
			}
			if cfg.Embed.Provider != adapter.ProviderOllama {
				fmt.Fprintf(out, "%-10s %-4s  %s/%s (not checked)\n", "Embed:", "-", cfg.Embed.Provider, cfg.Embed.Model)
			}

			database, err := db.Open()
			if err != nil {
				check("Index", err.Error(), false)
			} else {
				v, err := database.VecVersion()
				database.Close()
				if err != nil {
					check("Index", err.Error(), false)
				} else {
					check("Index", "sqlite-vec "+v+" (in memory)", true)
				}
			}

			fmt.Fprintf(out, "%-10s       %s, %s output\n", "Mode:", cfg.Embed.Mode, cfg.Output.Format)
			fmt.Fprintln(out)

			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "time limit for endpoint checks")

	return cmd
}

func checkModel(check func(string, string, bool), label, model string, models []adapter.OllamaModel) {
	if adapter.HasModel(models, model) {
		check(label, model, true)
		return
	}
	check(label, fmt.Sprintf("%s not pulled (run `ollama pull %s`)", model, model), false)
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
