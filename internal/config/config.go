package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

const (
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"

	WarehouseBigQuery = "bigquery"
	WarehouseDuckDB   = "duckdb"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Schema        SchemaConfig
	AI            AIConfig
	Warehouse     WarehouseConfig
	ObjectStore   ObjectStoreConfig
	History       HistoryConfig
	Pipeline      PipelineConfig
	Dashboard     DashboardConfig
	Seed          SeedConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SchemaConfig.Dir overrides the schema documents compiled into the binary.
type SchemaConfig struct {
	Dir string
}

type AIConfig struct {
	Provider           string
	Model              string
	APIKey             string
	Project            string
	Location           string
	BaseURL            string
	SQLTemperature     float64
	SummaryTemperature float64
	AdvisorTemperature float64
	Timeout            time.Duration
	RequestsPerMinute  int
}

type WarehouseConfig struct {
	Driver   string
	Project  string
	Location string
	Timeout  time.Duration
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

// HistoryConfig.DSN left empty disables interaction history.
type HistoryConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type PipelineConfig struct {
	EnforceAllowList bool
}

type DashboardConfig struct {
	CacheTTL  time.Duration
	CacheSize int
}

type SeedConfig struct {
	StartMonth string
	Months     int
	RandomSeed int64
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("ANCILLARY_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid ANCILLARY_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "ANCILLARY_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_SCHEMA_DIR", &cfg.Schema.Dir); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_AI_PROVIDER", &cfg.AI.Provider); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_AI_PROJECT", &cfg.AI.Project); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_AI_LOCATION", &cfg.AI.Location); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "ANCILLARY_AI_SQL_TEMPERATURE", &cfg.AI.SQLTemperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "ANCILLARY_AI_SUMMARY_TEMPERATURE", &cfg.AI.SummaryTemperature); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "ANCILLARY_AI_ADVISOR_TEMPERATURE", &cfg.AI.AdvisorTemperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANCILLARY_AI_REQUESTS_PER_MINUTE", &cfg.AI.RequestsPerMinute); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_WAREHOUSE_DRIVER", &cfg.Warehouse.Driver); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_WAREHOUSE_PROJECT", &cfg.Warehouse.Project); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_WAREHOUSE_LOCATION", &cfg.Warehouse.Location); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_WAREHOUSE_TIMEOUT", &cfg.Warehouse.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ANCILLARY_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ANCILLARY_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_HISTORY_DSN", &cfg.History.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANCILLARY_HISTORY_MAX_OPEN_CONNS", &cfg.History.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANCILLARY_HISTORY_MAX_IDLE_CONNS", &cfg.History.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_HISTORY_CONN_MAX_IDLE_TIME", &cfg.History.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_HISTORY_CONN_MAX_LIFETIME", &cfg.History.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ANCILLARY_PIPELINE_ENFORCE_ALLOWLIST", &cfg.Pipeline.EnforceAllowList); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "ANCILLARY_DASHBOARD_CACHE_TTL", &cfg.Dashboard.CacheTTL); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANCILLARY_DASHBOARD_CACHE_SIZE", &cfg.Dashboard.CacheSize); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "ANCILLARY_SEED_START_MONTH", &cfg.Seed.StartMonth); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "ANCILLARY_SEED_MONTHS", &cfg.Seed.Months); err != nil {
		return Config{}, err
	}
	if err := applyInt64(lookup, "ANCILLARY_SEED_RANDOM_SEED", &cfg.Seed.RandomSeed); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "ANCILLARY_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "ANCILLARY_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	cfg.AI.Provider = strings.ToLower(cfg.AI.Provider)
	cfg.Warehouse.Driver = strings.ToLower(cfg.Warehouse.Driver)

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	switch cfg.AI.Provider {
	case ProviderGemini, ProviderVertex, ProviderOpenAI:
	default:
		return Config{}, fmt.Errorf("invalid ANCILLARY_AI_PROVIDER: %q", cfg.AI.Provider)
	}
	switch cfg.Warehouse.Driver {
	case WarehouseBigQuery, WarehouseDuckDB:
	default:
		return Config{}, fmt.Errorf("invalid ANCILLARY_WAREHOUSE_DRIVER: %q", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.Driver == WarehouseBigQuery && cfg.Warehouse.Project == "" {
		return Config{}, fmt.Errorf("ANCILLARY_WAREHOUSE_PROJECT is required for the bigquery driver")
	}
	if cfg.AI.Provider == ProviderVertex && cfg.AI.Project == "" && cfg.AI.APIKey == "" {
		return Config{}, fmt.Errorf("ANCILLARY_AI_PROJECT or ANCILLARY_AI_API_KEY is required for the vertex provider")
	}
	if cfg.AI.RequestsPerMinute < 0 {
		return Config{}, fmt.Errorf("ANCILLARY_AI_REQUESTS_PER_MINUTE must be >= 0")
	}
	if cfg.Dashboard.CacheSize <= 0 {
		return Config{}, fmt.Errorf("ANCILLARY_DASHBOARD_CACHE_SIZE must be > 0")
	}
	if cfg.Seed.Months <= 0 {
		return Config{}, fmt.Errorf("ANCILLARY_SEED_MONTHS must be > 0")
	}
	if _, err := time.Parse("2006-01", cfg.Seed.StartMonth); err != nil {
		return Config{}, fmt.Errorf("invalid ANCILLARY_SEED_START_MONTH: %w", err)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "ancillary-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		AI: AIConfig{
			Provider:           ProviderGemini,
			Model:              "gemini-2.0-flash",
			Location:           "us-central1",
			BaseURL:            "https://api.openai.com",
			SQLTemperature:     0.0,
			SummaryTemperature: 0.3,
			AdvisorTemperature: 0.7,
			Timeout:            60 * time.Second,
			RequestsPerMinute:  60,
		},
		Warehouse: WarehouseConfig{
			Driver:   WarehouseDuckDB,
			Location: "US",
			Timeout:  60 * time.Second,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "localhost:9000",
			Region:           "us-east-1",
			Bucket:           "ancillary",
			AccessKeyID:      "minio",
			SecretAccessKey:  "miniostorage",
			UseSSL:           false,
			Prefix:           "",
			AutoCreateBucket: true,
		},
		History: HistoryConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Dashboard: DashboardConfig{
			CacheTTL:  10 * time.Minute,
			CacheSize: 8,
		},
		Seed: SeedConfig{
			StartMonth: "2023-01",
			Months:     30,
			RandomSeed: 42,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Dashboard.CacheTTL = time.Second
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Warehouse.Driver = WarehouseBigQuery
		cfg.Warehouse.Project = "nonhospitality-bi"
		cfg.Pipeline.EnforceAllowList = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt64(lookup LookupFunc, key string, dst *int64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
