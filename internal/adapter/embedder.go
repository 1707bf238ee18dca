package adapter

import (
	"context"
	"errors"
	"fmt"
)

// Embedder is a narrower interface for components that only need embedding,
// not full chat completion. An LLMAdapter satisfies this interface.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

var (
	// ErrUnreachable reports that the model service could not be contacted.
	ErrUnreachable = errors.New("model service unreachable")
	// ErrModelNotFound reports that the service does not have the named model.
	ErrModelNotFound = errors.New("model not found")
	// ErrEmbeddingsUnsupported is returned by providers without an embeddings API.
	ErrEmbeddingsUnsupported = errors.New("embeddings not supported")
	// ErrAPI is any other non-success answer from the service.
	ErrAPI = errors.New("model service error")

	ErrCountMismatch     = errors.New("embedding count does not match input count")
	ErrDimensionMismatch = errors.New("embeddings have differing dimensions")
)

// IsConnectivity reports whether err belongs to the connectivity or
// model-not-found class.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, ErrModelNotFound)
}

// CheckVectors verifies that vecs holds exactly n vectors of one non-zero
// dimension, and returns that dimension.
func CheckVectors(n int, vecs [][]float32) (int, error) {
	if len(vecs) != n {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrCountMismatch, len(vecs), n)
	}
	if n == 0 {
		return 0, nil
	}
	dim := len(vecs[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: vector 0 is empty", ErrDimensionMismatch)
	}
	for i, v := range vecs[1:] {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d, vector 0 has %d", ErrDimensionMismatch, i+1, len(v), dim)
		}
	}
	return dim, nil
}
