package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newEmbedCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Print the embedding of text as a JSON array",
		Long: `Embed text with the configured provider and print the vector.

The output can be used directly as the "embedding" field of a
POST /api/search request.

Examples:
  censusctl embed "median household income"
  censusctl embed --provider ollama --model nomic-embed-text "poverty rate"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := o.embedder()
			if err != nil {
				return err
			}
			vec, err := e.Embed(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("embedding text: %w", err)
			}
			o.logger.Debug("embedded", "model", e.ModelInfo(), "dim", len(vec))
			return writeIndented(cmd.OutOrStdout(), vec)
		},
	}
}
