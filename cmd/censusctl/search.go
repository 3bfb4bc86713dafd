package main

import (
	"encoding/json"
	"fmt"

	"github.com/WessleyAI/census-search/engine/vectorsearch"
	"github.com/WessleyAI/census-search/pkg/httpjson"
	"github.com/spf13/cobra"
)

type searchBody struct {
	Embedding []float32 `json:"embedding"`
	Limit     int       `json:"limit"`
}

func newSearchCmd(o *options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Embed text and run a vector search",
		Long: `Embed text with the configured provider, POST the vector to
/api/search and print the matching chunk records.

Examples:
  censusctl search "median household income"
  censusctl search --limit 10 "commute time by county"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			e, err := o.embedder()
			if err != nil {
				return err
			}
			vec, err := e.Embed(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("embedding query: %w", err)
			}

			var records []json.RawMessage
			url := o.server + "/api/search"
			if err := httpjson.Post(cmd.Context(), o.client, url, searchBody{Embedding: vec, Limit: limit}, &records); err != nil {
				return fmt.Errorf("searching: %w", err)
			}
			o.logger.Debug("vector search", "model", e.ModelInfo(), "results", len(records))
			return writeIndented(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", vectorsearch.DefaultLimit, "number of neighbours to request")
	return cmd
}
