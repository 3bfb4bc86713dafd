package chunks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/WessleyAI/census-search/pkg/fn"
	"github.com/WessleyAI/census-search/pkg/httpjson"
	"github.com/WessleyAI/census-search/pkg/metrics"
)

var errNoMatch = errors.New("chunks: no record with matching global_id")

// Resolver turns neighbour labels into chunk records fetched from BaseURL.
type Resolver struct {
	BaseURL string
	Map     Map
	Client  *http.Client
	// Dedupe fetches each distinct file once per Resolve call instead of
	// once per label.
	Dedupe  bool
	Logger  *slog.Logger
	Metrics *metrics.Registry
}

type lookup struct {
	label int64
	file  string
}

// Resolve returns the records for labels in label order. Labels that are
// unmapped, whose file cannot be fetched or parsed, or whose file lacks a
// matching global_id are left out.
func (r *Resolver) Resolve(ctx context.Context, labels []int64) []json.RawMessage {
	lookups := fn.FilterMap(labels, func(label int64) (lookup, bool) {
		file, ok := r.Map.Lookup(label)
		if !ok {
			r.drop(label, metrics.DropUnmapped, nil)
		}
		return lookup{label: label, file: file}, ok
	})

	var results []fn.Result[json.RawMessage]
	if r.Dedupe {
		results = r.resolveDeduped(ctx, lookups)
	} else {
		results = fn.ParMapResult(lookups, 0, func(l lookup) fn.Result[json.RawMessage] {
			return r.find(l, r.fetch(ctx, l.file))
		})
	}

	return fn.Oks(results)
}

func (r *Resolver) resolveDeduped(ctx context.Context, lookups []lookup) []fn.Result[json.RawMessage] {
	files := fn.Unique(fn.Map(lookups, func(l lookup) string { return l.file }))
	fetched := fn.ParMapResult(files, 0, func(file string) fn.Result[[]json.RawMessage] {
		return r.fetch(ctx, file)
	})
	byFile := make(map[string]fn.Result[[]json.RawMessage], len(files))
	for i, file := range files {
		byFile[file] = fetched[i]
	}
	return fn.Map(lookups, func(l lookup) fn.Result[json.RawMessage] {
		return r.find(l, byFile[l.file])
	})
}

func (r *Resolver) fetch(ctx context.Context, file string) fn.Result[[]json.RawMessage] {
	var records []json.RawMessage
	url := strings.TrimRight(r.BaseURL, "/") + "/" + file
	if err := httpjson.Get(ctx, r.Client, url, &records); err != nil {
		r.Metrics.ChunkFetch(metrics.FetchFailed)
		return fn.Err[[]json.RawMessage](err)
	}
	r.Metrics.ChunkFetch(metrics.FetchOK)
	return fn.Ok(records)
}

func (r *Resolver) find(l lookup, fetched fn.Result[[]json.RawMessage]) fn.Result[json.RawMessage] {
	records, err := fetched.Unwrap()
	if err != nil {
		r.drop(l.label, metrics.DropFetch, err)
		return fn.Err[json.RawMessage](err)
	}
	rec, ok := Find(records, l.label)
	if !ok {
		r.drop(l.label, metrics.DropNoMatch, nil)
		return fn.Err[json.RawMessage](errNoMatch)
	}
	return fn.Ok(rec)
}

func (r *Resolver) drop(label int64, reason string, err error) {
	r.Metrics.LabelDropped(reason)
	if r.Logger == nil {
		return
	}
	attrs := []any{"label", label, "reason", reason}
	if err != nil {
		attrs = append(attrs, "err", err)
	}
	r.Logger.Debug("label dropped", attrs...)
}

// Find returns the first record whose global_id equals label. global_id may
// be a JSON number or a numeric string.
func Find(records []json.RawMessage, label int64) (json.RawMessage, bool) {
	for _, rec := range records {
		var probe struct {
			GlobalID json.Number `json:"global_id"`
		}
		if err := json.Unmarshal(rec, &probe); err != nil || probe.GlobalID == "" {
			continue
		}
		if id, err := probe.GlobalID.Int64(); err == nil {
			if id == label {
				return rec, true
			}
			continue
		}
		if f, err := probe.GlobalID.Float64(); err == nil && f == float64(label) {
			return rec, true
		}
	}
	return nil, false
}
