// Package cli defines the Cobra command tree for the statembed CLI.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/statembed/statembed/internal/config"
	"github.com/statembed/statembed/internal/logger"
)

var (
	// version, commit, date are set via -ldflags at build time.
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// state carries the persistent flags and the resolved configuration to
// every subcommand.
type state struct {
	configPath string
	file       string
	model      string
	host       string
	provider   string
	format     string
	mode       string
	logLevel   string

	cfg config.Config
	log *slog.Logger
}

// Execute runs the root command.
func Execute(v, c, d string) {
	version, commit, date = v, c, d
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:   "statembed",
		Short: "Embed the rows of a statistics table with a local or hosted model",
		Long: `statembed loads a delimited statistics table, prints its rows, asks an
embedding model for one vector per row and prints the vectors.

The same rows can be searched by similarity and used to answer questions,
from the command line, over HTTP or as MCP tools.

Run 'statembed embed --file stats.csv' to get started.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return st.load(cmd)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&st.configPath, "config", "", "config file (default ~/.config/statembed/config.toml)")
	pf.StringVarP(&st.file, "file", "f", "", "statistics file to load")
	pf.StringVarP(&st.model, "model", "m", "", "embedding model")
	pf.StringVar(&st.host, "host", "", "Ollama base URL")
	pf.StringVar(&st.provider, "provider", "", "embedding provider (ollama, openai, mock)")
	pf.StringVar(&st.format, "format", "", "output format (text, json, markdown)")
	pf.StringVar(&st.mode, "mode", "", "embedding mode (per-row, whole)")
	pf.StringVar(&st.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newEmbedCmd(st),
		newLoadCmd(st),
		newAskCmd(st),
		newServeCmd(st),
		newMCPCmd(st),
		newWatchCmd(st),
		newStatusCmd(st),
		newSetupCmd(st),
		newVersionCmd(),
	)
	return rootCmd
}

// load resolves the configuration: defaults, config file, .env,
// environment, then flags that were set explicitly.
func (st *state) load(cmd *cobra.Command) error {
	cfg, err := config.Load(config.LoadOptions{
		Path:         st.configPath,
		AllowMissing: cmd.Name() == "setup",
	})
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("file") {
		cfg.File.Path = st.file
	}
	if flags.Changed("model") {
		cfg.Embed.Model = st.model
	}
	if flags.Changed("host") {
		cfg.Ollama.Host = st.host
	}
	if flags.Changed("provider") {
		cfg.Embed.Provider = st.provider
	}
	if flags.Changed("format") {
		cfg.Output.Format = st.format
	}
	if flags.Changed("mode") {
		cfg.Embed.Mode = st.mode
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = st.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	st.cfg = cfg
	st.log = logger.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "statembed %s (commit %s, built %s)\n", version, commit, date)
		},
	}
}
