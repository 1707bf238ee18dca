// Package adapter provides a unified interface for embedding and completion
// providers.
package adapter

import (
	"context"
	"fmt"
	"time"
)

// Provider name constants.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
)

// Ollama defaults.
const (
	DefaultOllamaHost = "http://localhost:11434"
	DefaultEmbedModel = "llama2:7b"
	DefaultChatModel  = "llama3:8b"
)

// StreamChunk is a single token or error delivered during streaming.
type StreamChunk struct {
	Text  string
	Error error
}

// CompletionRequest holds the parameters for a completion call.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	Model        string
	MaxTokens    int
	Temperature  float64
	Stream       bool
}

// ModelInfo describes the models an adapter is bound to.
type ModelInfo struct {
	Provider          string
	EmbedModel        string
	ChatModel         string
	MaxContextWindow  int
	SupportsStreaming bool
	SupportsEmbedding bool
}

// LLMAdapter is the common interface all provider adapters implement.
type LLMAdapter interface {
	Embedder

	// Complete sends a prompt and streams the response.
	Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error)

	// Info returns metadata about the adapter.
	Info() ModelInfo
}

// Options selects and configures a provider.
type Options struct {
	Provider   string
	EmbedModel string
	ChatModel  string
	APIKey     string
	// Host is the Ollama base URL, or the OpenAI-compatible base URL.
	Host    string
	Timeout time.Duration
}

// New constructs the LLMAdapter for opts.Provider.
func New(opts Options) (LLMAdapter, error) {
	switch opts.Provider {
	case ProviderOllama:
		return NewOllama(opts), nil
	case ProviderOpenAI:
		return NewOpenAI(opts), nil
	case ProviderClaude:
		return NewClaude(opts), nil
	case ProviderMock:
		return NewMock(0), nil
	default:
		return nil, fmt.Errorf("adapter: unknown provider %q; valid providers: ollama, openai, claude, mock", opts.Provider)
	}
}

// Collect drains a completion stream into a single string.
func Collect(ch <-chan StreamChunk) (string, error) {
	var out []byte
	for chunk := range ch {
		if chunk.Error != nil {
			return string(out), chunk.Error
		}
		out = append(out, chunk.Text...)
	}
	return string(out), nil
}
