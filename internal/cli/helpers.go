package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/statembed/statembed/internal/adapter"
	"github.com/statembed/statembed/internal/config"
	"github.com/statembed/statembed/internal/db"
	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/loader"
	"github.com/statembed/statembed/internal/prompt"
	"github.com/statembed/statembed/internal/qa"
)

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func loaderOptions(cfg config.Config) loader.Options {
	return loader.Options{
		Delimiter:       cfg.File.DelimiterRune(),
		SourceColumn:    cfg.File.SourceColumn,
		MetadataColumns: cfg.File.MetadataColumns,
	}
}

// apiKey returns the configured key for a hosted provider.
func apiKey(cfg config.Config, provider string) string {
	switch provider {
	case adapter.ProviderOpenAI:
		return cfg.OpenAI.APIKey
	case adapter.ProviderClaude:
		return cfg.Anthropic.APIKey
	}
	return ""
}

// hostFor returns the base URL for provider ("" means the SDK default).
func hostFor(cfg config.Config, provider string) string {
	switch provider {
	case adapter.ProviderOllama:
		return cfg.Ollama.Host
	case adapter.ProviderOpenAI:
		return cfg.OpenAI.BaseURL
	}
	return ""
}

// buildEmbedder returns the adapter that produces row vectors.
func buildEmbedder(cfg config.Config) (adapter.LLMAdapter, error) {
	p := cfg.Embed.Provider
	return adapter.New(adapter.Options{
		Provider:   p,
		EmbedModel: cfg.Embed.Model,
		APIKey:     apiKey(cfg, p),
		Host:       hostFor(cfg, p),
		Timeout:    cfg.Embed.Timeout,
	})
}

// buildCompleter returns the adapter that answers questions.
func buildCompleter(cfg config.Config) (adapter.LLMAdapter, error) {
	p := cfg.Completion.Provider
	return adapter.New(adapter.Options{
		Provider:  p,
		ChatModel: cfg.Completion.Model,
		APIKey:    apiKey(cfg, p),
		Host:      hostFor(cfg, p),
		Timeout:   cfg.Embed.Timeout,
	})
}

// newService loads the configured file and wires a qa.Service over an
// in-memory index. The returned func releases the index.
func newService(st *state) (*qa.Service, func(), error) {
	cfg := st.cfg
	records, err := loader.Load(cfg.File.Path, loaderOptions(cfg))
	if err != nil {
		return nil, nil, err
	}
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}
	completer, err := buildCompleter(cfg)
	if err != nil {
		return nil, nil, err
	}
	database, err := db.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open index: %w", err)
	}

	svc, err := qa.New(qa.Options{
		Records:   records,
		Embedder:  embedder,
		Completer: completer,
		Index:     index.New(database),
		Builder:   prompt.NewBuilder(nil, cfg.Ask.PromptBudget),
		ChatModel: cfg.Completion.Model,
		MaxTokens: cfg.Completion.MaxTokens,
		Stream:    cfg.Completion.Stream,
		TopK:      cfg.Ask.TopK,
		Logger:    st.log,
	})
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	st.log.Debug("service ready", "file", cfg.File.Path, "records", len(records))
	return svc, func() { database.Close() }, nil
}

// explain adds a hint to connectivity failures.
func explain(cfg config.Config, err error) error {
	if err == nil || !adapter.IsConnectivity(err) {
		return err
	}
	if cfg.Embed.Provider == adapter.ProviderOllama {
		return fmt.Errorf("%w\n  is Ollama running at %s and has %q been pulled? try `statembed status`", err, cfg.Ollama.Host, cfg.Embed.Model)
	}
	return fmt.Errorf("%w\n  check the %s endpoint and model %q", err, cfg.Embed.Provider, cfg.Embed.Model)
}

// spinner returns a pipeline progress hook drawing a spinner on w, or nil
// when w is not a terminal.
func spinner(w io.Writer, enabled bool) func(int) func() {
	f, ok := w.(*os.File)
	if !enabled || !ok || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return func(n int) func() {
		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription(fmt.Sprintf("  Embedding %d input(s)", n)),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetWriter(w),
			progressbar.OptionClearOnFinish(),
		)
		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					_ = bar.Add(1)
				}
			}
		}()
		return func() {
			close(done)
			wg.Wait()
			_ = bar.Finish()
		}
	}
}
