package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	postgres_adapter "github.com/user/extraction-pipeline/internal/adapter/postgres"
	redis_adapter "github.com/user/extraction-pipeline/internal/adapter/redis"
	"github.com/user/extraction-pipeline/internal/delivery/output"
	"github.com/user/extraction-pipeline/internal/fetch"
	"github.com/user/extraction-pipeline/internal/pipeline"
	"github.com/user/extraction-pipeline/internal/proxypool"
	"github.com/user/extraction-pipeline/internal/ratelimit"
	"github.com/user/extraction-pipeline/internal/retry"
	"github.com/user/extraction-pipeline/internal/sites"
	"github.com/user/extraction-pipeline/internal/validate"
	"github.com/user/extraction-pipeline/pkg/config"
	"github.com/user/extraction-pipeline/pkg/logger"
	"github.com/user/extraction-pipeline/pkg/metrics"
)

func main() {
	var (
		startURL    = flag.String("url", "", "start URL of the paginated source (required)")
		profileName = flag.String("profile", "listing", "site profile: listing or reviews")
	)
	flag.Parse()

	// --- Configuration ---
	cfg := config.Load()
	logger.Init(os.Stdout, logger.ParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if *startURL == "" {
		slog.Error("Missing required -url flag")
		os.Exit(1)
	}
	profile, ok := sites.Registry()[*profileName]
	if !ok {
		slog.Error("Unknown site profile", "profile", *profileName)
		os.Exit(1)
	}

	// --- Metrics ---
	metrics.Init()
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(":"+cfg.MetricsPort, nil); err != nil && err != http.ErrServerClosed {
			slog.Error("Metrics listener failed", "port", cfg.MetricsPort, "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Core components ---
	governor, err := ratelimit.NewGovernor(cfg.MinDelay, cfg.MaxDelay)
	if err != nil {
		slog.Error("Invalid rate governor bounds", "error", err)
		os.Exit(1)
	}
	pool := proxypool.New(cfg.ProxyList, cfg.CooldownBase, cfg.CooldownCap)

	var transport fetch.Transport
	if cfg.RenderJS {
		browser := fetch.NewChromedpTransport(cfg.RequestTimeout)
		defer browser.Close()
		transport = browser
	} else {
		transport = fetch.NewHTTPTransport(cfg.RequestTimeout)
	}
	executor := fetch.NewExecutor(transport, cfg.RequestTimeout)

	validator := validate.New(profile.Rules)

	// --- Optional stores ---
	opts := pipeline.Options{
		Governor:         governor,
		Pool:             pool,
		Executor:         executor,
		Policy:           retry.Policy{MaxAttempts: cfg.MaxAttempts, BaseDelay: cfg.BaseBackoff, MaxDelay: cfg.MaxBackoff},
		Extractor:        profile.Extractor,
		Validator:        validator,
		MaxPages:         cfg.MaxPages,
		MaxRecords:       cfg.MaxRecords,
		Headers:          profile.Headers,
		AdvanceOnFailure: profile.AdvanceOnFailure,
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			slog.Error("Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		validator.WithStore(redis_adapter.NewFingerprintStore(rdb), cfg.DedupTTL)
		slog.Info("Redis fingerprint store enabled", "ttl", cfg.DedupTTL)
	}

	if cfg.PersistRecords {
		connString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		dbpool, err := pgxpool.New(ctx, connString)
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		opts.RecordSink = postgres_adapter.NewRecordSink(dbpool)
		opts.FailedPages = postgres_adapter.NewFailedPageStore(dbpool)
		slog.Info("PostgreSQL record sink enabled")
	}

	// --- Output ---
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		slog.Error("Unable to create output directory", "dir", cfg.OutputDir, "error", err)
		os.Exit(1)
	}
	outPath := filepath.Join(cfg.OutputDir,
		fmt.Sprintf("%s_%s.%s", profile.Name, time.Now().Format("20060102_150405"), cfg.OutputFormat))
	outFile, err := os.Create(outPath)
	if err != nil {
		slog.Error("Unable to create output file", "path", outPath, "error", err)
		os.Exit(1)
	}
	defer outFile.Close()
	writer, err := output.NewWriter(cfg.OutputFormat, outFile, profile.FieldOrder)
	if err != nil {
		slog.Error("Unable to build output writer", "error", err)
		os.Exit(1)
	}

	// --- Run ---
	pipe, err := pipeline.New(opts)
	if err != nil {
		slog.Error("Unable to assemble pipeline", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting run", "url", *startURL, "profile", profile.Name,
		"max_pages", cfg.MaxPages, "max_records", cfg.MaxRecords, "proxies", pool.Size())
	run := pipe.Run(ctx, *startURL)

	written := 0
	for record := range run.Records() {
		if err := writer.Write(record); err != nil {
			slog.Error("Failed to write record", "fingerprint", record.Fingerprint, "error", err)
			continue
		}
		written++
	}
	if err := writer.Close(); err != nil {
		slog.Error("Failed to finalize output", "path", outPath, "error", err)
	}

	summary := run.Summary()
	slog.Info("Run summary",
		"stop_reason", summary.StopReason,
		"attempts", summary.Attempts,
		"successes", summary.Successes,
		"soft_failures", summary.SoftFailures,
		"hard_failures", summary.HardFailures,
		"pages_fetched", summary.PagesFetched,
		"pages_failed", summary.PagesFailed,
		"extraction_drift", summary.ExtractionDrift,
		"records_emitted", summary.RecordsEmitted,
		"records_rejected", summary.RecordsRejected,
		"records_deduplicated", summary.RecordsDeduplicated,
		"success_rate", fmt.Sprintf("%.2f", summary.SuccessRate()),
		"output", outPath,
		"written", written,
	)
}
