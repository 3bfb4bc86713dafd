package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/WessleyAI/census-search/pkg/embedder"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// options holds the flags shared by every subcommand.
type options struct {
	server   string
	provider string
	model    string
	embedURL string
	verbose  bool

	logger *slog.Logger
	client *http.Client
	newEmbedder func(o *options) (embedder.Embedder, error)
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&options{
		client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		newEmbedder: defaultEmbedder,
	})
}

func buildRootCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "censusctl",
		Short:         "Query the census search API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			_ = godotenv.Load()
			o.applyEnv(cmd)
			level := slog.LevelInfo
			if o.verbose {
				level = slog.LevelDebug
			}
			o.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}

	f := cmd.PersistentFlags()
	f.StringVar(&o.server, "server", "http://localhost:8080", "census search API base URL (env CENSUS_API_URL)")
	f.StringVar(&o.provider, "provider", "openai", "embedding provider: openai or ollama (env EMBED_PROVIDER)")
	f.StringVar(&o.model, "model", "", "embedding model (env EMBED_MODEL)")
	f.StringVar(&o.embedURL, "embed-url", "", "embedding API base URL (env EMBED_BASE_URL)")
	f.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newEmbedCmd(o),
		newSearchCmd(o),
		newDatasetsCmd(o),
		newEventsCmd(o),
	)
	return cmd
}

// applyEnv fills flags the user did not set from the environment.
func (o *options) applyEnv(cmd *cobra.Command) {
	for _, e := range []struct {
		flag, key string
		dst       *string
	}{
		{"server", "CENSUS_API_URL", &o.server},
		{"provider", "EMBED_PROVIDER", &o.provider},
		{"model", "EMBED_MODEL", &o.model},
		{"embed-url", "EMBED_BASE_URL", &o.embedURL},
	} {
		if cmd.Flags().Changed(e.flag) {
			continue
		}
		if v := os.Getenv(e.key); v != "" {
			*e.dst = v
		}
	}
	o.server = strings.TrimRight(o.server, "/")
}

func (o *options) embedder() (embedder.Embedder, error) {
	return o.newEmbedder(o)
}

func defaultEmbedder(o *options) (embedder.Embedder, error) {
	return embedder.New(o.provider, o.model, o.embedURL, os.Getenv("OPENAI_API_KEY"))
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
