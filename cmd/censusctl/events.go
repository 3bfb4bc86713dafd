package main

import (
	"context"
	"fmt"
	"os"

	"github.com/WessleyAI/census-search/engine/domain"
	"github.com/WessleyAI/census-search/pkg/natsutil"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

func newEventsCmd(o *options) *cobra.Command {
	var (
		natsURL string
		subject string
		count   int
	)
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print search events published by the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("nats-url") {
				if v := os.Getenv("NATS_URL"); v != "" {
					natsURL = v
				}
			}
			nc, err := nats.Connect(natsURL, nats.Name("censusctl"))
			if err != nil {
				return fmt.Errorf("nats connect: %w", err)
			}
			defer nc.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			events := make(chan domain.SearchEvent, 64)
			sub, err := natsutil.Subscribe(nc, subject, func(_ context.Context, e domain.SearchEvent) {
				select {
				case events <- e:
				default:
					o.logger.Warn("event dropped, printer is behind")
				}
			})
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", subject, err)
			}
			defer sub.Unsubscribe()
			if err := nc.Flush(); err != nil {
				return err
			}
			o.logger.Debug("listening", "subject", subject)

			seen := 0
			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-events:
					writeEvent(cmd, e)
					seen++
					if count > 0 && seen >= count {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats-url", nats.DefaultURL, "NATS server URL (env NATS_URL)")
	cmd.Flags().StringVar(&subject, "subject", "census.search.events", "subject to subscribe to")
	cmd.Flags().IntVar(&count, "count", 0, "exit after this many events (0 runs until interrupted)")
	return cmd
}

func writeEvent(cmd *cobra.Command, e domain.SearchEvent) {
	out := cmd.OutOrStdout()
	status := "ok"
	if e.Error != "" {
		status = "error: " + e.Error
	}
	fmt.Fprintf(out, "%-14s q=%q limit=%d results=%d %dms %s\n",
		e.Kind, e.Query, e.Limit, e.Results, e.DurationMS, status)
}
