package main

import (
	"fmt"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/WessleyAI/census-search/engine/catalog"
	"github.com/WessleyAI/census-search/pkg/httpjson"
	"github.com/spf13/cobra"
)

func newDatasetsCmd(o *options) *cobra.Command {
	var (
		limit  int
		shared bool
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "datasets <query>",
		Short: "Keyword search over the dataset catalog",
		Long: `Search dataset titles, descriptions, summaries and keywords.

Examples:
  censusctl datasets income
  censusctl datasets --shared --limit 10 poverty
  censusctl datasets --json housing`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/datasets"
			if shared {
				path += "/shared"
			}
			q := url.Values{"q": {args[0]}, "limit": {strconv.Itoa(limit)}}

			var results []catalog.Result
			if err := httpjson.Get(cmd.Context(), o.client, o.server+path+"?"+q.Encode(), &results); err != nil {
				return fmt.Errorf("searching datasets: %w", err)
			}
			if asJSON {
				return writeIndented(cmd.OutOrStdout(), results)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintf(out, "No datasets found for query: %s\n", args[0])
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "IDENTIFIER\tTITLE\tSUMMARY\n")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Identifier, truncate(r.Title, 40), truncate(r.Summary, 60))
			}
			w.Flush()
			fmt.Fprintf(out, "\nFound %d dataset(s)\n", len(results))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "maximum results to return")
	cmd.Flags().BoolVar(&shared, "shared", false, "search the file-sharing copy of the catalog")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
