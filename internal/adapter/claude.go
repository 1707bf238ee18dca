package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	anthropic "github.com/liushuangls/go-anthropic/v2"
)

const defaultClaudeModel = "claude-sonnet-4-6"

// claudeAdapter implements LLMAdapter for Anthropic Claude.
type claudeAdapter struct {
	client    *anthropic.Client
	chatModel string
}

// NewClaude creates a Claude adapter. If opts.APIKey is empty,
// ANTHROPIC_API_KEY is used.
func NewClaude(opts Options) LLMAdapter {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	var clientOpts []anthropic.ClientOption
	if opts.Host != "" {
		clientOpts = append(clientOpts, anthropic.WithBaseURL(opts.Host))
	}
	model := opts.ChatModel
	if model == "" {
		model = defaultClaudeModel
	}
	return &claudeAdapter{
		client:    anthropic.NewClient(apiKey, clientOpts...),
		chatModel: model,
	}
}

func (c *claudeAdapter) Info() ModelInfo {
	return ModelInfo{
		Provider:          ProviderClaude,
		ChatModel:         c.chatModel,
		MaxContextWindow:  200000,
		SupportsStreaming: true,
	}
}

func (c *claudeAdapter) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, fmt.Errorf("claude adapter: %w; use ollama or openai for embeddings", ErrEmbeddingsUnsupported)
}

func (c *claudeAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = c.chatModel
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	msgReq := anthropic.MessagesRequest{
		Model: anthropic.Model(model),
		Messages: []anthropic.Message{{
			Role:    anthropic.RoleUser,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(req.Prompt)},
		}},
		MaxTokens: maxTokens,
		System:    req.SystemPrompt,
	}

	ch := make(chan StreamChunk, 64)

	if !req.Stream {
		go func() {
			defer close(ch)
			resp, err := c.client.CreateMessages(ctx, msgReq)
			if err != nil {
				ch <- StreamChunk{Error: c.classify("claude complete", model, err)}
				return
			}
			if len(resp.Content) > 0 {
				ch <- StreamChunk{Text: resp.Content[0].GetText()}
			}
		}()
		return ch, nil
	}

	go func() {
		defer close(ch)

		_, err := c.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
			MessagesRequest: msgReq,
			OnContentBlockDelta: func(delta anthropic.MessagesEventContentBlockDeltaData) {
				if delta.Delta.Type == anthropic.MessagesContentTypeTextDelta {
					ch <- StreamChunk{Text: delta.Delta.GetText()}
				}
			},
		})
		if err != nil && !errors.Is(err, io.EOF) {
			ch <- StreamChunk{Error: c.classify("claude stream", model, err)}
		}
	}()

	return ch, nil
}

func (c *claudeAdapter) classify(op, model string, err error) error {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsNotFoundErr() {
			return fmt.Errorf("%s: %w: %q: %w", op, ErrModelNotFound, model, err)
		}
		return fmt.Errorf("%s: %w: %w", op, ErrAPI, err)
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%s: %w: status %d: %w", op, ErrAPI, reqErr.StatusCode, err)
	}
	return transportError(op, "anthropic api", err)
}
