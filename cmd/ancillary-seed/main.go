package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ancillary-hub/ancillary/internal/config"
	"github.com/ancillary-hub/ancillary/internal/observability"
	"github.com/ancillary-hub/ancillary/internal/seed"
	s3store "github.com/ancillary-hub/ancillary/internal/storage/s3"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("ancillary-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	startMonth := flag.String("start", cfg.Seed.StartMonth, "first month of generated data (YYYY-MM)")
	months := flag.Int("months", cfg.Seed.Months, "number of months to generate")
	randomSeed := flag.Int64("seed", cfg.Seed.RandomSeed, "random seed; the same seed yields the same dataset")
	partRows := flag.Int("part-rows", 500, "maximum rows per parquet part")
	flag.Parse()

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	generator, err := seed.NewGenerator(*randomSeed, *startMonth, *months)
	if err != nil {
		logger.Error("invalid seed parameters", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		logger.Error("failed to initialize object store", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("seeding warehouse",
		slog.String("bucket", cfg.ObjectStore.Bucket),
		slog.String("start_month", *startMonth),
		slog.Int("months", *months),
		slog.Int64("seed", *randomSeed),
	)
	publisher := &seed.Publisher{Store: store, PartRows: *partRows, Logger: logger}
	reports, err := publisher.Publish(ctx, generator.Generate())
	if err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}

	var rows int
	var bytes int64
	for _, report := range reports {
		rows += report.Rows
		bytes += report.Bytes
	}
	logger.Info("seeding finished",
		slog.Int("tables", len(reports)),
		slog.Int("rows", rows),
		slog.Int64("bytes", bytes),
	)
}
