package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/WessleyAI/census-search/pkg/httpjson"
)

// Ollama embeds text through a local Ollama server's HTTP API.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama embedder. A nil client uses http.DefaultClient.
func NewOllama(baseURL, model string, client *http.Client) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &Ollama{baseURL: strings.TrimRight(baseURL, "/"), model: model, client: client}
}

type ollamaEmbedReq struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResp struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the unit-length embedding of text.
func (e *Ollama) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	var resp ollamaEmbedResp
	if err := httpjson.Post(ctx, e.client, e.baseURL+"/api/embeddings", ollamaEmbedReq{Model: e.model, Prompt: text}, &resp); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama embed: empty embedding for model %s", e.model)
	}
	v := toFloat32(resp.Embedding)
	normalize(v)
	return v, nil
}

func (e *Ollama) ModelInfo() string { return "ollama-" + e.model }
