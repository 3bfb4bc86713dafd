// Package embedder turns query text into embeddings for the vector search
// endpoint. The server itself never embeds; clients do.
package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/vec/search"
)

// ErrEmptyText is returned when asked to embed an empty string.
var ErrEmptyText = errors.New("embedder: cannot embed empty text")

// Embedder generates an embedding for a single text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelInfo() string
}

// New picks an Embedder by provider name: "openai" or "ollama".
func New(provider, model, baseURL, apiKey string) (Embedder, error) {
	switch provider {
	case "openai":
		return NewOpenAI(apiKey, model, baseURL)
	case "ollama":
		return NewOllama(baseURL, model, nil), nil
	default:
		return nil, fmt.Errorf("embedder: unknown provider %q", provider)
	}
}

// normalize scales v to unit length in place. Zero vectors are left alone.
func normalize(v []float32) {
	mag := search.Float32s(v).Magnitude()
	if mag == 0 {
		return
	}
	for i := range v {
		v[i] /= mag
	}
}

func toFloat32(v64 []float64) []float32 {
	v := make([]float32, len(v64))
	for i := range v64 {
		v[i] = float32(v64[i])
	}
	return v
}
