package adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// openaiAdapter implements LLMAdapter for OpenAI and OpenAI-compatible servers.
type openaiAdapter struct {
	client     *openai.Client
	host       string
	embedModel string
	chatModel  string
}

// NewOpenAI creates an OpenAI adapter. If opts.APIKey is empty,
// OPENAI_API_KEY is used. opts.Host overrides the API base URL.
func NewOpenAI(opts Options) LLMAdapter {
	apiKey := opts.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg := openai.DefaultConfig(apiKey)
	if opts.Host != "" {
		cfg.BaseURL = opts.Host
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	embedModel := opts.EmbedModel
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}
	chatModel := opts.ChatModel
	if chatModel == "" {
		chatModel = openai.GPT4o
	}
	return &openaiAdapter{
		client:     openai.NewClientWithConfig(cfg),
		host:       cfg.BaseURL,
		embedModel: embedModel,
		chatModel:  chatModel,
	}
}

func (o *openaiAdapter) Info() ModelInfo {
	return ModelInfo{
		Provider:          ProviderOpenAI,
		EmbedModel:        o.embedModel,
		ChatModel:         o.chatModel,
		MaxContextWindow:  128000,
		SupportsStreaming: true,
		SupportsEmbedding: true,
	}
}

func (o *openaiAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(o.embedModel),
	})
	if err != nil {
		return nil, o.classify("openai embed", o.embedModel, err)
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: %w: got %d, want %d", ErrCountMismatch, len(resp.Data), len(texts))
	}
	result := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(result) {
			return nil, fmt.Errorf("openai embed: %w: index %d out of range", ErrCountMismatch, d.Index)
		}
		result[d.Index] = d.Embedding
	}
	return result, nil
}

func (o *openaiAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	model := req.Model
	if model == "" {
		model = o.chatModel
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var messages []openai.ChatCompletionMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	chatReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: float32(req.Temperature),
	}

	ch := make(chan StreamChunk, 64)

	if !req.Stream {
		go func() {
			defer close(ch)
			resp, err := o.client.CreateChatCompletion(ctx, chatReq)
			if err != nil {
				ch <- StreamChunk{Error: o.classify("openai complete", model, err)}
				return
			}
			if len(resp.Choices) > 0 {
				ch <- StreamChunk{Text: resp.Choices[0].Message.Content}
			}
		}()
		return ch, nil
	}

	chatReq.Stream = true
	stream, err := o.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		close(ch)
		return nil, o.classify("openai stream", model, err)
	}

	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				ch <- StreamChunk{Error: fmt.Errorf("openai stream recv: %w", err)}
				return
			}
			if len(resp.Choices) > 0 {
				ch <- StreamChunk{Text: resp.Choices[0].Delta.Content}
			}
		}
	}()

	return ch, nil
}

func (o *openaiAdapter) classify(op, model string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %q: %s", op, ErrModelNotFound, model, apiErr.Message)
		}
		return fmt.Errorf("%s: %w: status %d: %s", op, ErrAPI, apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w: %q: %w", op, ErrModelNotFound, model, err)
		}
		return fmt.Errorf("%s: %w: status %d: %w", op, ErrAPI, reqErr.HTTPStatusCode, err)
	}
	return transportError(op, o.host, err)
}
