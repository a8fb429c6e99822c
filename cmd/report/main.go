package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"equity-analytics-lab/internal/config"
	"equity-analytics-lab/internal/reporting"
	pgstore "equity-analytics-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	outputDir := flag.String("output-dir", "docs", "Output directory for generated files")
	envFile := flag.String("env-file", "", "Path to .env file (optional)")
	marketDays := flag.Int("market-days", 30, "Trailing market indicator dates to include (0 = all)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	derived := pgstore.NewDerivedStore(pool)

	gen := reporting.NewGenerator(derived, cfg.BenchmarkTicker)
	report, err := gen.Generate(ctx, *marketDays)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating report: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating output dir: %v\n", err)
		os.Exit(1)
	}

	mdPath := filepath.Join(*outputDir, "MARKET_REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing markdown report: %v\n", err)
		os.Exit(1)
	}

	csvPath := filepath.Join(*outputDir, "MARKET_INDICATORS.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Market)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Market report generated successfully:")
	fmt.Printf("  - %s\n", mdPath)
	fmt.Printf("  - %s\n", csvPath)
}
