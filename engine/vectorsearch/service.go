// Package vectorsearch answers nearest-neighbour queries: it searches the
// prebuilt index for a query embedding and resolves the matched labels to
// document chunk records.
package vectorsearch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/WessleyAI/census-search/engine/annindex"
	"github.com/WessleyAI/census-search/engine/domain"
	"github.com/WessleyAI/census-search/pkg/fn"
	"github.com/WessleyAI/census-search/pkg/metrics"
	"go.opentelemetry.io/otel"
)

// Searcher runs a k-NN query and returns parallel label/distance slices,
// nearest first. Empty slots carry annindex.NoLabel.
type Searcher interface {
	Search(ctx context.Context, query []float32, k int) ([]int64, []float32, error)
}

// Resolver maps labels to records, dropping labels it cannot resolve.
type Resolver interface {
	Resolve(ctx context.Context, labels []int64) []json.RawMessage
}

// FileSearcher loads the index from Path on every call.
type FileSearcher struct {
	Path string
}

// Search implements Searcher.
func (s FileSearcher) Search(ctx context.Context, query []float32, k int) ([]int64, []float32, error) {
	_, span := otel.Tracer("engine/vectorsearch").Start(ctx, "index.load")
	ix, err := annindex.Load(s.Path)
	span.End()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIndexLoad, err)
	}
	labels, distances, err := ix.Search(query, k)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrIndexSearch, err)
	}
	return labels, distances, nil
}

// Service is the vector search pipeline.
type Service struct {
	searcher Searcher
	resolver Resolver
	logger   *slog.Logger
	metrics  *metrics.Registry
	pipeline fn.Stage[Request, []json.RawMessage]
}

// New creates a Service.
func New(searcher Searcher, resolver Resolver, logger *slog.Logger, m *metrics.Registry) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{searcher: searcher, resolver: resolver, logger: logger, metrics: m}
	s.pipeline = fn.Then(
		fn.TracedStage("index.search", s.searchLabels),
		fn.TracedStage("chunks.resolve", s.resolveLabels),
	)
	return s
}

// Search returns the chunk records for the nearest neighbours of
// req.Embedding in nearest-first order. The result is never nil.
func (s *Service) Search(ctx context.Context, req Request) ([]json.RawMessage, error) {
	records, err := s.pipeline(ctx, req).Unwrap()
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func (s *Service) searchLabels(ctx context.Context, req Request) fn.Result[[]int64] {
	labels, _, err := s.searcher.Search(ctx, req.Embedding, req.Limit)
	if err != nil {
		return fn.Err[[]int64](err)
	}
	if len(labels) > req.Limit {
		labels = labels[:req.Limit]
	}
	matched := fn.Filter(labels, func(label int64) bool {
		if label == annindex.NoLabel {
			s.metrics.LabelDropped(metrics.DropSentinel)
			return false
		}
		return true
	})
	s.logger.Debug("index search", "limit", req.Limit, "matched", len(matched))
	return fn.Ok(matched)
}

func (s *Service) resolveLabels(ctx context.Context, labels []int64) fn.Result[[]json.RawMessage] {
	return fn.Ok(s.resolver.Resolve(ctx, labels))
}
