// Command analytics recomputes the derived equity analytics tables from the
// raw market data. It runs once by default; with a cron schedule it keeps
// running and recomputes on schedule.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"equity-analytics-lab/internal/config"
	"equity-analytics-lab/internal/observability"
	"equity-analytics-lab/internal/pipeline"
	"equity-analytics-lab/internal/storage"
	chstore "equity-analytics-lab/internal/storage/clickhouse"
	"equity-analytics-lab/internal/storage/migrations"
	pgstore "equity-analytics-lab/internal/storage/postgres"
)

func main() {
	envFile := flag.String("env-file", "", "Path to .env file (default: ./.env if present)")
	migrate := flag.Bool("migrate", false, "Apply database migrations before running")
	schedule := flag.String("schedule", "", "Cron schedule (overrides RECOMPUTE_SCHEDULE)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides METRICS_ADDR)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[analytics] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*envFile)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *schedule != "" {
		cfg.RecomputeSchedule = *schedule
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling...", sig)
		cancel()
	}()

	// Start metrics server if enabled
	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatalf("Connect postgres: %v", err)
	}
	defer pool.Close()

	if *migrate {
		logger.Println("Applying postgres migrations...")
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Run postgres migrations: %v", err)
		}
	}

	dirtyLog := pgstore.NewDirtyTickerLog(pool)
	derived := pgstore.NewDerivedStore(pool)

	var raw storage.RawStore
	if cfg.ClickhouseDSN != "" {
		var conn *chstore.Conn
		if *migrate {
			logger.Println("Applying clickhouse migrations...")
			conn, err = migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, cfg.ClickhouseDSN)
		}
		if err != nil {
			logger.Fatalf("Connect clickhouse: %v", err)
		}
		defer conn.Close()
		raw = chstore.NewRawStore(conn)
		logger.Println("Reading raw market data from ClickHouse")
	} else {
		raw = pgstore.NewRawStore(pool)
	}

	runner := pipeline.New(raw, derived, dirtyLog, cfg.BenchmarkTicker, logger)

	if cfg.RecomputeSchedule == "" {
		if err := runOnce(ctx, runner, logger); err != nil {
			logger.Fatalf("Analytics run failed: %v", err)
		}
		return
	}

	// Scheduled mode: run immediately, then on every cron tick.
	if err := runOnce(ctx, runner, logger); err != nil {
		logger.Printf("Initial analytics run failed: %v", err)
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.RecomputeSchedule, func() {
		if err := runOnce(ctx, runner, logger); err != nil {
			logger.Printf("Scheduled analytics run failed: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("Parse schedule %q: %v", cfg.RecomputeSchedule, err)
	}

	logger.Printf("Scheduler started with %q", cfg.RecomputeSchedule)
	c.Start()

	<-ctx.Done()
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Println("Waiting for running job timed out after 30s, forcing exit")
	}
	logger.Println("Shutdown complete")
}

func runOnce(ctx context.Context, runner *pipeline.Runner, logger *log.Logger) error {
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	logger.Printf("Run complete in %s: %d stock rows, %d group rows, %d market rows, %d breakouts (%d dropped, %d dirty tickers)",
		res.Duration.Round(time.Millisecond), res.StockRows, res.GroupRows,
		res.MarketRows, res.BreakoutStocks, res.DroppedRows, res.DirtyTickers)
	return nil
}
