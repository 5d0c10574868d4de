package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"clarifier/pkg/metrics"
)

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	prometheusURL := fs.String("prometheus", "http://localhost:9090", "Prometheus server scraping clarifier")
	window := fs.Duration("window", 24*time.Hour, "Aggregation window")
	if err := fs.Parse(args); err != nil {
		return err
	}

	qs, err := metrics.NewQueryService(*prometheusURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := qs.GetSummary(ctx, *window)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", *prometheusURL, err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
