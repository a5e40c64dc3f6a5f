package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ancillary-hub/ancillary/internal/advisor"
	"github.com/ancillary-hub/ancillary/internal/api"
	"github.com/ancillary-hub/ancillary/internal/api/uistatic"
	"github.com/ancillary-hub/ancillary/internal/config"
	"github.com/ancillary-hub/ancillary/internal/dashboard"
	historypostgres "github.com/ancillary-hub/ancillary/internal/history/postgres"
	"github.com/ancillary-hub/ancillary/internal/llm"
	"github.com/ancillary-hub/ancillary/internal/observability"
	"github.com/ancillary-hub/ancillary/internal/pipeline"
	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/schema"
	"github.com/ancillary-hub/ancillary/internal/sqlgen"
	s3store "github.com/ancillary-hub/ancillary/internal/storage/s3"
	"github.com/ancillary-hub/ancillary/internal/summary"
	"github.com/ancillary-hub/ancillary/internal/warehouse"
	bqwarehouse "github.com/ancillary-hub/ancillary/internal/warehouse/bigquery"
	duckdbwarehouse "github.com/ancillary-hub/ancillary/internal/warehouse/duckdb"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("ancillary-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)
	ctx := context.Background()

	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Error("failed to load schema catalog", slog.Any("error", err))
		os.Exit(1)
	}

	model, err := buildModel(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize generative model", slog.Any("error", err))
		os.Exit(1)
	}

	wh, readiness, closeWarehouse, err := buildWarehouse(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize warehouse", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeWarehouse()
	readiness = append(readiness, api.CheckWarehouseConfig(cfg))

	answerer := &pipeline.Pipeline{
		Catalog:    catalog,
		Generator:  sqlgen.NewGenerator(model).WithTemperature(float32(cfg.AI.SQLTemperature)),
		Warehouse:  wh,
		Summarizer: summary.NewSummarizer(model).WithTemperature(float32(cfg.AI.SummaryTemperature)),
		Logger:     logger,
	}
	if cfg.Pipeline.EnforceAllowList {
		answerer.Guard = sqlgen.NewGuard(prompt.AllowedTables, prompt.AllowedModels)
	}

	deps := api.Dependencies{
		Logger:  logger,
		Catalog: catalog,
		Asker:   answerer,
		Dashboard: dashboard.NewService(wh, model, dashboard.Options{
			CacheTTL:           cfg.Dashboard.CacheTTL,
			CacheSize:          cfg.Dashboard.CacheSize,
			InsightTemperature: float32(cfg.AI.AdvisorTemperature),
		}),
		Advisor:           advisor.New(model, wh),
		UI:                uistatic.Handler(),
		DependencyTimeout: 2 * time.Second,
	}

	if cfg.History.DSN != "" {
		historyDB, err := historypostgres.Open(ctx, historypostgres.DBConfig{
			DSN:             cfg.History.DSN,
			MaxOpenConns:    cfg.History.MaxOpenConns,
			MaxIdleConns:    cfg.History.MaxIdleConns,
			ConnMaxIdleTime: cfg.History.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.History.ConnMaxLifetime,
		})
		if err != nil {
			logger.Error("failed to open history db", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() { _ = historyDB.Close() }()

		repo := historypostgres.NewRepository(historyDB)
		answerer.Recorder = repo
		deps.History = repo
		readiness = append(readiness, api.CheckHistory(repo.HealthCheck))
	} else {
		logger.Info("interaction history disabled; set ANCILLARY_HISTORY_DSN to enable")
	}
	deps.Readiness = api.CombineReadinessChecks(readiness...)

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("model_provider", model.Provider()),
			slog.String("warehouse", cfg.Warehouse.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func loadCatalog(cfg config.Config) (*schema.Catalog, error) {
	if cfg.Schema.Dir != "" {
		return schema.LoadDir(cfg.Schema.Dir)
	}
	return schema.Default()
}

func buildModel(ctx context.Context, cfg config.Config) (llm.Client, error) {
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL:           cfg.AI.BaseURL,
			APIKey:            cfg.AI.APIKey,
			Model:             cfg.AI.Model,
			Timeout:           cfg.AI.Timeout,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
		})
	case config.ProviderGemini, config.ProviderVertex:
		return llm.NewGeminiClient(ctx, llm.GeminiConfig{
			APIKey:            cfg.AI.APIKey,
			Vertex:            cfg.AI.Provider == config.ProviderVertex,
			Project:           cfg.AI.Project,
			Location:          cfg.AI.Location,
			Model:             cfg.AI.Model,
			Timeout:           cfg.AI.Timeout,
			RequestsPerMinute: cfg.AI.RequestsPerMinute,
		})
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.AI.Provider)
	}
}

// buildWarehouse returns the instrumented warehouse, any readiness checks
// specific to the driver and a close function.
func buildWarehouse(ctx context.Context, cfg config.Config) (warehouse.Warehouse, []api.ReadinessCheck, func(), error) {
	switch cfg.Warehouse.Driver {
	case config.WarehouseBigQuery:
		bq, err := bqwarehouse.New(ctx, bqwarehouse.Config{
			ProjectID: cfg.Warehouse.Project,
			Location:  cfg.Warehouse.Location,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		wh := warehouse.WithTimeout(cfg.Warehouse.Timeout, warehouse.Instrument(config.WarehouseBigQuery, bq))
		return wh, nil, func() { _ = bq.Close() }, nil
	case config.WarehouseDuckDB:
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
			return nil, nil, nil, err
		}
		tables := append(append([]string{}, prompt.AllowedTables...), advisor.ROITable)
		engine := duckdbwarehouse.NewEngine(store, tables)
		wh := warehouse.WithTimeout(cfg.Warehouse.Timeout, warehouse.Instrument(config.WarehouseDuckDB, engine))
		return wh, []api.ReadinessCheck{store.Ping}, func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unsupported warehouse driver %q", cfg.Warehouse.Driver)
	}
}
