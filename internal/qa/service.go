// Package qa answers questions about a loaded table: it finds the rows
// nearest to the question and asks a completion model about them.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/statembed/statembed/internal/adapter"
	"github.com/statembed/statembed/internal/index"
	"github.com/statembed/statembed/internal/loader"
	"github.com/statembed/statembed/internal/logger"
	"github.com/statembed/statembed/internal/prompt"
)

// ErrMissingQuestion is returned for an empty question.
var ErrMissingQuestion = errors.New("qa: missing question")

// Completer produces a completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req adapter.CompletionRequest) (<-chan adapter.StreamChunk, error)
}

// Options configures a Service.
type Options struct {
	Records   []loader.Record
	Embedder  adapter.Embedder
	Completer Completer
	Index     *index.Index
	Builder   *prompt.Builder
	ChatModel string
	MaxTokens int
	// Stream asks the completion model for a streamed reply. The reply is
	// collected before Answer returns either way.
	Stream bool
	// TopK is the number of rows used to answer a question (0 = 1).
	TopK   int
	Logger *slog.Logger
}

// Service ties the loaded records to an embedder, an index and a
// completion model.
type Service struct {
	opts Options

	mu      sync.Mutex
	indexed bool
}

// Answer is the result of Service.Answer.
type Answer struct {
	Response string
	Matches  []index.Match
	Prompt   prompt.Built
}

// New validates opts and returns a Service. Nothing is embedded until the
// first Index, Nearest or Answer call.
func New(opts Options) (*Service, error) {
	if opts.Embedder == nil {
		return nil, errors.New("qa: embedder is required")
	}
	if opts.Index == nil {
		return nil, errors.New("qa: index is required")
	}
	if opts.TopK <= 0 {
		opts.TopK = 1
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}
	return &Service{opts: opts}, nil
}

// Records returns the loaded records.
func (s *Service) Records() []loader.Record {
	return s.opts.Records
}

// TopK returns the default number of rows used per question.
func (s *Service) TopK() int {
	return s.opts.TopK
}

// Index embeds every record in one call and fills the index. Later calls
// are no-ops.
func (s *Service) Index(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed {
		return nil
	}
	if len(s.opts.Records) == 0 {
		s.indexed = true
		return nil
	}

	texts := loader.Texts(s.opts.Records)
	vecs, err := s.opts.Embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("qa: embed rows: %w", err)
	}
	if _, err := adapter.CheckVectors(len(texts), vecs); err != nil {
		return fmt.Errorf("qa: embed rows: %w", err)
	}
	if err := s.opts.Index.Add(s.opts.Records, vecs); err != nil {
		return fmt.Errorf("qa: %w", err)
	}
	s.indexed = true
	s.opts.Logger.Debug("rows indexed", "rows", len(s.opts.Records), "dimension", s.opts.Index.Dimension())
	return nil
}

// Nearest returns up to k rows nearest to question (k <= 0 uses TopK).
func (s *Service) Nearest(ctx context.Context, question string, k int) ([]index.Match, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrMissingQuestion
	}
	if k <= 0 {
		k = s.opts.TopK
	}
	if err := s.Index(ctx); err != nil {
		return nil, err
	}
	if s.opts.Index.Len() == 0 {
		return nil, nil
	}

	vecs, err := s.opts.Embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("qa: embed question: %w", err)
	}
	if _, err := adapter.CheckVectors(1, vecs); err != nil {
		return nil, fmt.Errorf("qa: embed question: %w", err)
	}
	matches, err := s.opts.Index.Nearest(vecs[0], k)
	if err != nil {
		return nil, fmt.Errorf("qa: %w", err)
	}
	return matches, nil
}

// Answer finds the nearest rows, builds a prompt from them and returns the
// completion model's response.
func (s *Service) Answer(ctx context.Context, question string) (*Answer, error) {
	if s.opts.Completer == nil || s.opts.Builder == nil {
		return nil, errors.New("qa: no completion model configured")
	}
	matches, err := s.Nearest(ctx, question, 0)
	if err != nil {
		return nil, err
	}

	built, err := s.opts.Builder.Build(strings.TrimSpace(question), matches)
	if err != nil {
		return nil, fmt.Errorf("qa: build prompt: %w", err)
	}
	s.opts.Logger.Debug("prompt built", "tokens", built.Tokens, "rows", built.RowsUsed, "truncated", built.Truncated)

	ch, err := s.opts.Completer.Complete(ctx, adapter.CompletionRequest{
		Prompt:    built.Text,
		Model:     s.opts.ChatModel,
		MaxTokens: s.opts.MaxTokens,
		Stream:    s.opts.Stream,
	})
	if err != nil {
		return nil, fmt.Errorf("qa: complete: %w", err)
	}
	resp, err := adapter.Collect(ch)
	if err != nil {
		return nil, fmt.Errorf("qa: complete: %w", err)
	}
	return &Answer{Response: resp, Matches: matches, Prompt: built}, nil
}
