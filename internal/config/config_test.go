package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// noDotEnv points Load at a .env path that does not exist.
func noDotEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.File.Path != "stats.csv" {
		t.Errorf("file path: got %q, want %q", cfg.File.Path, "stats.csv")
	}
	if cfg.Embed.Model != "llama2:7b" {
		t.Errorf("embed model: got %q, want %q", cfg.Embed.Model, "llama2:7b")
	}
	if cfg.Embed.Provider != "ollama" {
		t.Errorf("embed provider: got %q", cfg.Embed.Provider)
	}
	if cfg.Embed.Mode != "per-row" {
		t.Errorf("mode: got %q", cfg.Embed.Mode)
	}
	if cfg.Ollama.Host != "http://localhost:11434" {
		t.Errorf("ollama host: got %q", cfg.Ollama.Host)
	}
	if cfg.Completion.Model != "llama3:8b" {
		t.Errorf("completion model: got %q", cfg.Completion.Model)
	}
	if cfg.Embed.Timeout != 0 {
		t.Errorf("timeout: got %v, want none", cfg.Embed.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "nope.toml"), DotEnv: noDotEnv(t)})
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_AllowMissing(t *testing.T) {
	cfg, err := Load(LoadOptions{
		Path:         filepath.Join(t.TempDir(), "new.toml"),
		AllowMissing: true,
		DotEnv:       noDotEnv(t),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embed.Model != "llama2:7b" {
		t.Errorf("model: got %q", cfg.Embed.Model)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[file]
path = "stats/player-per-game.csv"
metadata_columns = ["Player-additional"]

[embed]
model = "mxbai-embed-large"
timeout = "45s"

[ollama]
host = "http://gpu-box:11434/"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadOptions{Path: path, DotEnv: noDotEnv(t)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.File.Path != "stats/player-per-game.csv" {
		t.Errorf("file path: got %q", cfg.File.Path)
	}
	if len(cfg.File.MetadataColumns) != 1 {
		t.Errorf("metadata columns: got %v", cfg.File.MetadataColumns)
	}
	if cfg.Embed.Model != "mxbai-embed-large" {
		t.Errorf("embed model: got %q", cfg.Embed.Model)
	}
	if cfg.Embed.Timeout != 45*time.Second {
		t.Errorf("timeout: got %v", cfg.Embed.Timeout)
	}
	if cfg.Ollama.Host != "http://gpu-box:11434" {
		t.Errorf("host: got %q", cfg.Ollama.Host)
	}
	// Unset keys keep their defaults.
	if cfg.Embed.Provider != "ollama" {
		t.Errorf("provider: got %q", cfg.Embed.Provider)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[embed]\nmodel = \"from-file\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("STATEMBED_MODEL", "from-env")
	t.Setenv("OLLAMA_HOST", "127.0.0.1:11500")
	t.Setenv("STATEMBED_TIMEOUT", "2m")

	cfg, err := Load(LoadOptions{Path: path, DotEnv: noDotEnv(t)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Embed.Model != "from-env" {
		t.Errorf("model: got %q, want from-env", cfg.Embed.Model)
	}
	if cfg.Ollama.Host != "http://127.0.0.1:11500" {
		t.Errorf("host: got %q", cfg.Ollama.Host)
	}
	if cfg.Embed.Timeout != 2*time.Minute {
		t.Errorf("timeout: got %v", cfg.Embed.Timeout)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	dotenv := filepath.Join(dir, ".env")
	if err := os.WriteFile(dotenv, []byte("STATEMBED_FORMAT=json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv writes into the process environment; clear it afterwards.
	t.Cleanup(func() { os.Unsetenv("STATEMBED_FORMAT") })

	cfg, err := Load(LoadOptions{Path: "", DotEnv: dotenv})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("format: got %q, want json", cfg.Output.Format)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.Embed.Mode = "batch" }, "Mode"},
		{"bad provider", func(c *Config) { c.Embed.Provider = "claude" }, "Provider"},
		{"bad format", func(c *Config) { c.Output.Format = "yaml" }, "Format"},
		{"empty model", func(c *Config) { c.Embed.Model = "" }, "Model"},
		{"empty path", func(c *Config) { c.File.Path = "" }, "Path"},
		{"long delimiter", func(c *Config) { c.File.Delimiter = ";;" }, "Delimiter"},
		{"top k", func(c *Config) { c.Ask.TopK = 0 }, "TopK"},
		{"bare host", func(c *Config) { c.Ollama.Host = "localhost" }, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Embed.Model = "nomic-embed-text"
	cfg.Embed.Timeout = 30 * time.Second
	cfg.File.Delimiter = ";"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(LoadOptions{Path: path, DotEnv: noDotEnv(t)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Embed.Model != "nomic-embed-text" {
		t.Errorf("model: got %q", got.Embed.Model)
	}
	if got.Embed.Timeout != 30*time.Second {
		t.Errorf("timeout: got %v", got.Embed.Timeout)
	}
	if got.File.DelimiterRune() != ';' {
		t.Errorf("delimiter: got %q", got.File.DelimiterRune())
	}
}

func TestSave_OmitsAPIKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-secret-123")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-secret-456")
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(LoadOptions{Path: path, AllowMissing: true, DotEnv: noDotEnv(t)})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OpenAI.APIKey != "sk-secret-123" {
		t.Fatalf("OpenAI key not loaded: %q", cfg.OpenAI.APIKey)
	}

	// An existing, wider file must be narrowed as well.
	if err := os.WriteFile(path, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"sk-secret-123", "sk-ant-secret-456", "api_key"} {
		if strings.Contains(string(data), secret) {
			t.Errorf("saved config contains %q:\n%s", secret, data)
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("mode = %v, want -rw-------", mode)
	}
	if cfg.OpenAI.APIKey != "sk-secret-123" {
		t.Error("Save cleared the caller's key")
	}
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"http://localhost:11434", "http://localhost:11434"},
		{"http://localhost:11434/", "http://localhost:11434"},
		{"127.0.0.1:11434", "http://127.0.0.1:11434"},
		{"0.0.0.0", "http://0.0.0.0:11434"},
		{"https://ollama.example.com", "https://ollama.example.com"},
	}
	for _, tt := range tests {
		if got := normalizeHost(tt.in); got != tt.want {
			t.Errorf("normalizeHost(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
