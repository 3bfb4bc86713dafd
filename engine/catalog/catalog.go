// Package catalog implements keyword search over the census dataset catalog:
// a single JSON array of dataset descriptions fetched from a remote host.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/WessleyAI/census-search/engine/domain"
	"github.com/WessleyAI/census-search/pkg/httpjson"
)

const (
	// DefaultLimit applies when the caller sends no limit.
	DefaultLimit = 5
	// MaxVariables caps the variables listed per result.
	MaxVariables = 10
)

// Dataset is one catalog entry.
type Dataset struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Summary     string          `json:"summary"`
	Identifier  string          `json:"identifier"`
	Keywords    []string        `json:"keywords,omitempty"`
	Variables   json.RawMessage `json:"variables,omitempty"`
}

// Result is the projection of a matching dataset returned to callers.
type Result struct {
	Title      string          `json:"title"`
	Identifier string          `json:"identifier"`
	Summary    string          `json:"summary"`
	Variables  json.RawMessage `json:"variables"`
}

// Service searches the catalog published at URL.
type Service struct {
	URL    string
	Client *http.Client
}

// Fetch downloads the catalog. Redirects are followed.
func (s *Service) Fetch(ctx context.Context) ([]Dataset, error) {
	var datasets []Dataset
	if err := httpjson.Get(ctx, s.Client, s.URL, &datasets); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogFetch, err)
	}
	return datasets, nil
}

// Search fetches the catalog and returns up to limit matches for q.
func (s *Service) Search(ctx context.Context, q string, limit int) ([]Result, error) {
	datasets, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Search(datasets, q, limit), nil
}

// Search filters datasets by q, keeps source order, truncates to limit and
// projects each match. The result is never nil.
func Search(datasets []Dataset, q string, limit int) []Result {
	out := []Result{}
	if limit <= 0 {
		return out
	}
	for _, d := range datasets {
		if len(out) == limit {
			break
		}
		if !Match(d, q) {
			continue
		}
		out = append(out, Result{
			Title:      d.Title,
			Identifier: d.Identifier,
			Summary:    d.Summary,
			Variables:  truncateVariables(d.Variables, MaxVariables),
		})
	}
	return out
}

// Match reports whether q occurs in the dataset's searchable text, ignoring case.
func Match(d Dataset, q string) bool {
	return strings.Contains(searchText(d), strings.ToLower(q))
}

func searchText(d Dataset) string {
	return strings.ToLower(strings.Join([]string{
		d.Title,
		d.Description,
		d.Summary,
		strings.Join(d.Keywords, " "),
	}, " "))
}
