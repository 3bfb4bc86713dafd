package vectorsearch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/WessleyAI/census-search/engine/domain"
)

// DefaultLimit is the neighbour count used when a request omits limit.
const DefaultLimit = 5

// Request is a decoded vector search request.
type Request struct {
	Embedding []float32
	Limit     int
}

// ParseRequest decodes and validates a request body of the form
// {"embedding": [numbers], "limit": integer}.
func ParseRequest(body []byte) (Request, error) {
	var raw struct {
		Embedding json.RawMessage `json:"embedding"`
		Limit     json.RawMessage `json:"limit"`
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &raw); err != nil {
			return Request{}, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
		}
	}

	emb := bytes.TrimSpace(raw.Embedding)
	if len(emb) == 0 || emb[0] != '[' {
		return Request{}, domain.NewValidationError("embedding", "", domain.ErrMissingEmbedding)
	}
	// Decoded as float64 so values beyond float32 range narrow to ±Inf
	// instead of failing the request.
	var values []float64
	if err := json.Unmarshal(emb, &values); err != nil {
		return Request{}, domain.NewValidationError("embedding", "", domain.ErrMissingEmbedding)
	}
	req := Request{Embedding: make([]float32, len(values)), Limit: DefaultLimit}
	for i, v := range values {
		req.Embedding[i] = float32(v)
	}

	if lim := bytes.TrimSpace(raw.Limit); len(lim) > 0 && !bytes.Equal(lim, []byte("null")) {
		var f float64
		if err := json.Unmarshal(lim, &f); err != nil || f < 1 || f != math.Trunc(f) || f > math.MaxInt32 {
			return Request{}, domain.NewValidationError("limit", string(lim), domain.ErrInvalidLimit)
		}
		req.Limit = int(f)
	}
	return req, nil
}
