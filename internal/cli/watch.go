package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/statembed/statembed/internal/pipeline"
	"github.com/statembed/statembed/internal/render"
)

func newWatchCmd(st *state) *cobra.Command {
	var debounceMs int

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the embed pipeline whenever the file changes",
		Long: `Run the embed pipeline once, then watch the configured file and run it
again after every change.

Changes are debounced so that an editor writing the file in several steps
triggers a single run. A failed run is logged and watching continues.

Press Ctrl-C to stop.`,
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

			run := func(ctx context.Context) error {
				_, err := pipeline.Run(ctx, pipeline.Options{
					Path:     cfg.File.Path,
					Loader:   loaderOptions(cfg),
					Mode:     pipeline.Mode(cfg.Embed.Mode),
					Renderer: r,
					Logger:   st.log,
				}, emb, cmd.OutOrStdout())
				return explain(cfg, err)
			}

			debounce := time.Duration(debounceMs) * time.Millisecond
			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes (debounce %s). Press Ctrl-C to stop.\n", cfg.File.Path, debounce)
			return watchFile(ctx, cfg.File.Path, debounce, run, st.log)
		},
	}

	cmd.Flags().IntVar(&debounceMs, "debounce", 500, "debounce interval in milliseconds")

	return cmd
}

// watchFile calls run once, then again after each debounced change to
// path, until ctx is cancelled. The parent directory is watched so that
// editors replacing the file by rename are seen.
func watchFile(ctx context.Context, path string, debounce time.Duration, run func(context.Context) error, log *slog.Logger) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	runOnce := func() {
		if err := run(ctx); err != nil && ctx.Err() == nil {
			log.Error("run failed", "file", path, "err", err)
		}
	}
	runOnce()

	timer := time.NewTimer(debounce)
	timer.Stop() // Don't fire immediately.
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if _, err := os.Stat(abs); err != nil {
					log.Warn("file removed; waiting for it to reappear", "file", path)
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", "err", err)

		case <-timer.C:
			log.Info("file changed", "file", path)
			runOnce()
		}
	}
}
