package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/WessleyAI/census-search/engine/catalog"
	"github.com/WessleyAI/census-search/engine/domain"
	"github.com/WessleyAI/census-search/engine/vectorsearch"
	"github.com/WessleyAI/census-search/pkg/metrics"
	"github.com/WessleyAI/census-search/pkg/mid"
	"github.com/WessleyAI/census-search/pkg/natsutil"
)

// maxBodyBytes bounds the vector search request body.
const maxBodyBytes = 8 << 20

type vectorSearcher interface {
	Search(ctx context.Context, req vectorsearch.Request) ([]json.RawMessage, error)
}

type datasetSearcher interface {
	Search(ctx context.Context, q string, limit int) ([]catalog.Result, error)
}

type server struct {
	vector  vectorSearcher
	catalog datasetSearcher
	shared  datasetSearcher
	events  *natsutil.Emitter[domain.SearchEvent]
	logger  *slog.Logger
	metrics *metrics.Registry
}

func (s *server) routes(cfg Config) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	// No method in the pattern: non-POST requests get a JSON 405 from the handler.
	mux.Handle("/api/search", s.metered("search", s.handleVectorSearch))
	mux.Handle("GET /api/datasets", s.metered("datasets", s.handleDatasets(s.catalog, domain.KindKeyword)))
	mux.Handle("GET /api/datasets/shared", s.metered("datasets_shared", s.handleDatasets(s.shared, domain.KindKeywordShared)))
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	return mid.Chain(mux,
		mid.Recover(s.logger),
		mid.Logger(s.logger),
		mid.CORS(cfg.CORSOrigin),
		mid.OTel("census-search"),
		mid.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)
}

func (s *server) metered(route string, h http.HandlerFunc) http.Handler {
	return mid.Metrics(s.metrics, route)(h)
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleVectorSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, r, fmt.Errorf("%w, use POST", domain.ErrMethodNotAllowed))
		return
	}
	start := time.Now()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err))
		return
	}
	req, err := vectorsearch.ParseRequest(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	records, err := s.vector.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		s.emit(r.Context(), domain.SearchEvent{Kind: domain.KindVector, Limit: req.Limit, Error: err.Error()}, start)
		return
	}
	writeJSON(w, http.StatusOK, records)
	s.emit(r.Context(), domain.SearchEvent{Kind: domain.KindVector, Limit: req.Limit, Results: len(records)}, start)
}

func (s *server) handleDatasets(svc datasetSearcher, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		q := r.URL.Query().Get("q")
		if q == "" {
			s.writeError(w, r, domain.ErrMissingQuery)
			return
		}
		limit := catalog.ParseLimit(r.URL.Query().Get("limit"))

		results, err := svc.Search(r.Context(), q, limit)
		if err != nil {
			s.writeError(w, r, err)
			s.emit(r.Context(), domain.SearchEvent{Kind: kind, Query: q, Limit: limit, Error: err.Error()}, start)
			return
		}
		writeJSON(w, http.StatusOK, results)
		s.emit(r.Context(), domain.SearchEvent{Kind: kind, Query: q, Limit: limit, Results: len(results)}, start)
	}
}

func (s *server) emit(ctx context.Context, e domain.SearchEvent, start time.Time) {
	e.DurationMS = time.Since(start).Milliseconds()
	s.events.Emit(ctx, e)
}

// --- Responses ---

func (s *server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := domain.StatusCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeJSON encodes v before touching the response so an encoding failure
// still produces a 500 instead of a truncated 200.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		json.NewEncoder(&buf).Encode(map[string]string{"error": fmt.Sprintf("encode response: %v", err)})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
