// Package config loads statembed settings from defaults, a TOML file, a
// .env file, the environment and command-line overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting.
type Config struct {
	File       FileConfig       `toml:"file"`
	Embed      EmbedConfig      `toml:"embed"`
	Completion CompletionConfig `toml:"completion"`
	Ollama     OllamaConfig     `toml:"ollama"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Anthropic  AnthropicConfig  `toml:"anthropic"`
	Ask        AskConfig        `toml:"ask"`
	Server     ServerConfig     `toml:"server"`
	Output     OutputConfig     `toml:"output"`
	Log        LogConfig        `toml:"log"`
}

// FileConfig describes the input table.
type FileConfig struct {
	Path            string   `toml:"path" env:"STATEMBED_FILE" validate:"required"`
	Delimiter       string   `toml:"delimiter" env:"STATEMBED_DELIMITER" validate:"omitempty,len=1"`
	SourceColumn    string   `toml:"source_column"`
	MetadataColumns []string `toml:"metadata_columns"`
}

// EmbedConfig selects the embedding model.
type EmbedConfig struct {
	Provider string        `toml:"provider" env:"STATEMBED_PROVIDER" validate:"oneof=ollama openai mock"`
	Model    string        `toml:"model" env:"STATEMBED_MODEL" validate:"required"`
	Mode     string        `toml:"mode" env:"STATEMBED_MODE" validate:"oneof=per-row whole"`
	Timeout  time.Duration `toml:"timeout" env:"STATEMBED_TIMEOUT" validate:"min=0"`
}

// CompletionConfig selects the model that answers questions.
type CompletionConfig struct {
	Provider  string `toml:"provider" env:"STATEMBED_COMPLETION_PROVIDER" validate:"oneof=ollama openai claude mock"`
	Model     string `toml:"model" env:"STATEMBED_COMPLETION_MODEL"`
	MaxTokens int    `toml:"max_tokens" validate:"min=0"`
	Stream    bool   `toml:"stream"`
}

type OllamaConfig struct {
	Host string `toml:"host" env:"OLLAMA_HOST" validate:"required,url"`
}

type OpenAIConfig struct {
	APIKey  string `toml:"api_key,omitempty" env:"OPENAI_API_KEY"`
	BaseURL string `toml:"base_url" env:"OPENAI_BASE_URL" validate:"omitempty,url"`
}

type AnthropicConfig struct {
	APIKey string `toml:"api_key,omitempty" env:"ANTHROPIC_API_KEY"`
}

// AskConfig controls nearest-row lookup and prompt size.
type AskConfig struct {
	TopK         int `toml:"top_k" validate:"min=1,max=100"`
	PromptBudget int `toml:"prompt_budget" validate:"min=1"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr          string  `toml:"addr" env:"STATEMBED_ADDR" validate:"required"`
	RatePerSecond float64 `toml:"rate_per_second" validate:"min=0"`
	Burst         int     `toml:"burst" validate:"min=0"`
}

type OutputConfig struct {
	Format   string `toml:"format" env:"STATEMBED_FORMAT" validate:"oneof=text json markdown"`
	Progress bool   `toml:"progress"`
}

type LogConfig struct {
	Level  string `toml:"level" env:"STATEMBED_LOG_LEVEL" validate:"oneof=debug info warn error"`
	Format string `toml:"format" env:"STATEMBED_LOG_FORMAT" validate:"oneof=text json"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		File: FileConfig{
			Path: "stats.csv",
		},
		Embed: EmbedConfig{
			Provider: "ollama",
			Model:    "llama2:7b",
			Mode:     "per-row",
		},
		Completion: CompletionConfig{
			Provider:  "ollama",
			Model:     "llama3:8b",
			MaxTokens: 512,
		},
		Ollama: OllamaConfig{
			Host: "http://localhost:11434",
		},
		Ask: AskConfig{
			TopK:         1,
			PromptBudget: 4000,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			RatePerSecond: 5,
			Burst:         10,
		},
		Output: OutputConfig{
			Format:   "text",
			Progress: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.config/statembed/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "statembed", "config.toml"), nil
}

// LoadOptions controls where Load looks.
type LoadOptions struct {
	// Path is the TOML file. Empty means DefaultPath; a missing default
	// file is not an error, a missing explicit file is.
	Path string
	// AllowMissing treats a missing explicit Path like a missing default.
	AllowMissing bool
	// DotEnv is the .env file merged into the environment. Empty means
	// ".env" in the working directory; a missing file is ignored.
	DotEnv string
}

// Load builds the effective configuration. Command-line overrides are
// applied by the caller, followed by Validate.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	path := opts.Path
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || (explicit && !opts.AllowMissing) {
				return cfg, fmt.Errorf("config: load %s: %w", path, err)
			}
		}
	}

	dotenv := opts.DotEnv
	if dotenv == "" {
		dotenv = ".env"
	}
	if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("config: load %s: %w", dotenv, err)
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parse environment: %w", err)
	}

	cfg.Ollama.Host = normalizeHost(cfg.Ollama.Host)
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	c.Ollama.Host = normalizeHost(c.Ollama.Host)
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("config: invalid: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("config: validate: %w", err)
	}
	return nil
}

// Save writes cfg as TOML to path, creating parent directories. API keys
// are never written; they come from the environment or .env at load time.
// The file is readable by the owner only.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: mkdir: %w", err)
	}
	cfg.OpenAI.APIKey = ""
	cfg.Anthropic.APIKey = ""

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := f.Chmod(0o600); err != nil {
		return fmt.Errorf("config: chmod %s: %w", path, err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return nil
}

// DelimiterRune returns the configured delimiter as a rune (0 = default).
func (f FileConfig) DelimiterRune() rune {
	if f.Delimiter == "" {
		return 0
	}
	return []rune(f.Delimiter)[0]
}

// normalizeHost accepts OLLAMA_HOST forms such as "127.0.0.1:11434" or
// "0.0.0.0" and returns a base URL. A bare host gets the default port.
func normalizeHost(h string) string {
	h = strings.TrimRight(strings.TrimSpace(h), "/")
	if h == "" || strings.Contains(h, "://") {
		return h
	}
	if !strings.Contains(h, ":") {
		h += ":11434"
	}
	return "http://" + h
}
