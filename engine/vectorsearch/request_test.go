package vectorsearch

import (
	"errors"
	"math"
	"testing"

	"github.com/WessleyAI/census-search/engine/domain"
)

func TestParseRequest_Defaults(t *testing.T) {
	req, err := ParseRequest([]byte(`{"embedding": [0.1, 0.2, 0.3]}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if req.Limit != DefaultLimit {
		t.Fatalf("expected default limit %d, got %d", DefaultLimit, req.Limit)
	}
	if len(req.Embedding) != 3 || req.Embedding[2] != 0.3 {
		t.Fatalf("unexpected embedding %v", req.Embedding)
	}
}

func TestParseRequest_Limit(t *testing.T) {
	for body, want := range map[string]int{
		`{"embedding": [1], "limit": 2}`:    2,
		`{"embedding": [1], "limit": 10.0}`: 10,
		`{"embedding": [1], "limit": null}`: DefaultLimit,
	} {
		req, err := ParseRequest([]byte(body))
		if err != nil {
			t.Fatalf("ParseRequest(%s): %v", body, err)
		}
		if req.Limit != want {
			t.Errorf("ParseRequest(%s).Limit = %d, want %d", body, req.Limit, want)
		}
	}
}

func TestParseRequest_OutOfRangeValuesBecomeInf(t *testing.T) {
	req, err := ParseRequest([]byte(`{"embedding": [1e39, -1e39, 0.5]}`))
	if err != nil {
		t.Fatalf("ParseRequest: %v", err)
	}
	if !math.IsInf(float64(req.Embedding[0]), 1) || !math.IsInf(float64(req.Embedding[1]), -1) {
		t.Fatalf("expected [+Inf -Inf 0.5], got %v", req.Embedding)
	}
	if req.Embedding[2] != 0.5 {
		t.Fatalf("expected 0.5, got %v", req.Embedding[2])
	}
}

func TestParseRequest_MissingEmbedding(t *testing.T) {
	bodies := []string{
		``,
		`{}`,
		`{"embedding": null}`,
		`{"embedding": "0.1,0.2"}`,
		`{"embedding": {"0": 0.1}}`,
		`{"embedding": ["a", "b"]}`,
		`{"limit": 3}`,
	}
	for _, body := range bodies {
		_, err := ParseRequest([]byte(body))
		if !errors.Is(err, domain.ErrMissingEmbedding) {
			t.Errorf("ParseRequest(%q): expected ErrMissingEmbedding, got %v", body, err)
		}
	}
}

func TestParseRequest_InvalidBody(t *testing.T) {
	_, err := ParseRequest([]byte(`{"embedding": [1,`))
	if !errors.Is(err, domain.ErrInvalidBody) {
		t.Fatalf("expected ErrInvalidBody, got %v", err)
	}
}

func TestParseRequest_InvalidLimit(t *testing.T) {
	for _, body := range []string{
		`{"embedding": [1], "limit": 0}`,
		`{"embedding": [1], "limit": -3}`,
		`{"embedding": [1], "limit": 2.5}`,
		`{"embedding": [1], "limit": "5"}`,
	} {
		_, err := ParseRequest([]byte(body))
		if !errors.Is(err, domain.ErrInvalidLimit) {
			t.Errorf("ParseRequest(%s): expected ErrInvalidLimit, got %v", body, err)
		}
		if domain.StatusCode(err) != 400 {
			t.Errorf("ParseRequest(%s): expected 400 mapping", body)
		}
	}
}

func TestParseRequest_EmptyEmbeddingAccepted(t *testing.T) {
	req, err := ParseRequest([]byte(`{"embedding": []}`))
	if err != nil {
		t.Fatalf("empty array is still an array: %v", err)
	}
	if len(req.Embedding) != 0 {
		t.Fatalf("expected empty embedding, got %v", req.Embedding)
	}
}
