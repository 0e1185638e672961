// Package main generates the whale screener report: a markdown overview plus
// wallet and market CSVs, from a fresh screener run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"whale-screener/internal/analytics"
	"whale-screener/internal/domain"
	"whale-screener/internal/reporting"
	"whale-screener/internal/screener"
	"whale-screener/internal/wallets"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	apiKey := flag.String("api-key", os.Getenv("ANALYTICS_API_KEY"), "Analytics API key (empty runs on synthetic data)")
	outputDir := flag.String("output-dir", "output", "Output directory for generated files")
	walletsFile := flag.String("wallets", "", "Wallet registry YAML override (default: embedded registry)")
	entity := flag.String("entity", "", "Filter wallets by entity (retail, VCs, MM)")
	limit := flag.Int("limit", 0, "Cap wallet count (0 = all)")
	synthetic := flag.Bool("synthetic", false, "Force synthetic data even with an API key")
	timeout := flag.Duration("timeout", 5*time.Minute, "Overall timeout for the refresh")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// Load wallet registry
	var (
		registry *wallets.Registry
		err      error
	)
	if *walletsFile != "" {
		registry, err = wallets.LoadFile(*walletsFile)
	} else {
		registry, err = wallets.Default()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading wallet registry: %v\n", err)
		os.Exit(1)
	}

	// Create analytics client; no key means synthetic mode
	var client analytics.Client
	if *apiKey != "" {
		client = analytics.NewHTTPClient(*apiKey)
	}

	scr, err := screener.New(client, registry, screener.Options{ForceSynthetic: *synthetic})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screener: %v\n", err)
		os.Exit(1)
	}

	result, err := scr.Refresh(ctx, screener.Query{Entity: domain.Entity(*entity), Limit: *limit})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running refresh: %v\n", err)
		os.Exit(1)
	}

	// Ensure output directory exists
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output directory: %v\n", err)
		os.Exit(1)
	}

	report := reporting.NewGenerator().Generate(result.Summaries, result.Market)

	files := map[string]string{
		"REPORT.md":   reporting.RenderMarkdown(report),
		"WALLETS.csv": reporting.RenderCSV(report.Wallets),
		"MARKET.csv":  reporting.RenderMarketCSV(report.Market),
	}

	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
	}

	fmt.Println("Whale screener report generated successfully:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/WALLETS.csv\n", *outputDir)
	fmt.Printf("  - %s/MARKET.csv\n", *outputDir)
}
