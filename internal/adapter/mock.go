package adapter

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync/atomic"
)

// ProviderMock is an offline provider with deterministic output.
const ProviderMock = "mock"

// DefaultMockDimensions is the vector size of the mock provider.
const DefaultMockDimensions = 64

// MockAdapter returns hash-derived unit vectors and echoes prompts back. It
// needs no network and is used for dry runs and tests.
type MockAdapter struct {
	Dimensions int
	// Reply, when set, is returned by Complete instead of the prompt.
	Reply string

	calls atomic.Int64
}

// NewMock creates a MockAdapter with the given vector size (0 = default).
func NewMock(dimensions int) *MockAdapter {
	if dimensions <= 0 {
		dimensions = DefaultMockDimensions
	}
	return &MockAdapter{Dimensions: dimensions}
}

// Calls reports how many Embed calls have been made.
func (m *MockAdapter) Calls() int { return int(m.calls.Load()) }

func (m *MockAdapter) Info() ModelInfo {
	return ModelInfo{
		Provider:          ProviderMock,
		EmbedModel:        "mock",
		ChatModel:         "mock",
		MaxContextWindow:  math.MaxInt32,
		SupportsEmbedding: true,
	}
}

func (m *MockAdapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *MockAdapter) Complete(ctx context.Context, req CompletionRequest) (<-chan StreamChunk, error) {
	ch := make(chan StreamChunk, 1)
	reply := m.Reply
	if reply == "" {
		reply = req.Prompt
	}
	if err := ctx.Err(); err != nil {
		ch <- StreamChunk{Error: err}
	} else {
		ch <- StreamChunk{Text: reply}
	}
	close(ch)
	return ch, nil
}

// vector expands the SHA-256 of text into a unit vector.
func (m *MockAdapter) vector(text string) []float32 {
	v := make([]float32, m.Dimensions)
	seed := sha256.Sum256([]byte(text))
	block := seed
	var sum float64
	for i := range v {
		if i > 0 && i%8 == 0 {
			block = sha256.Sum256(block[:])
		}
		off := (i % 8) * 4
		u := binary.LittleEndian.Uint32(block[off : off+4])
		f := float32(u)/float32(math.MaxUint32)*2 - 1
		v[i] = f
		sum += float64(f) * float64(f)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
