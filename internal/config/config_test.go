package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	cfg, err := Load("ancillary-api", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.AI.Provider != ProviderGemini {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.SQLTemperature != 0 {
		t.Fatalf("AI.SQLTemperature = %f", cfg.AI.SQLTemperature)
	}
	if cfg.AI.SummaryTemperature != 0.3 {
		t.Fatalf("AI.SummaryTemperature = %f", cfg.AI.SummaryTemperature)
	}
	if cfg.Warehouse.Driver != WarehouseDuckDB {
		t.Fatalf("Warehouse.Driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Pipeline.EnforceAllowList {
		t.Fatal("Pipeline.EnforceAllowList should default to false in dev")
	}
	if cfg.History.DSN != "" {
		t.Fatalf("History.DSN = %q, want empty", cfg.History.DSN)
	}
	if cfg.Dashboard.CacheSize != 8 {
		t.Fatalf("Dashboard.CacheSize = %d", cfg.Dashboard.CacheSize)
	}
	if cfg.Seed.Months != 30 {
		t.Fatalf("Seed.Months = %d", cfg.Seed.Months)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	cfg, err := Load("ancillary-api", mapLookup(map[string]string{"ANCILLARY_PROFILE": "prod"}))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileProd {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileProd)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Warehouse.Driver != WarehouseBigQuery {
		t.Fatalf("Warehouse.Driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.Project != "nonhospitality-bi" {
		t.Fatalf("Warehouse.Project = %q", cfg.Warehouse.Project)
	}
	if !cfg.Pipeline.EnforceAllowList {
		t.Fatal("Pipeline.EnforceAllowList should default to true in prod")
	}
	if !cfg.ObjectStore.UseSSL {
		t.Fatal("ObjectStore.UseSSL should default to true in prod")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"ANCILLARY_PROFILE":                    "test",
		"ANCILLARY_SERVICE_NAME":               "ancillary-custom",
		"ANCILLARY_HTTP_ADDR":                  ":9999",
		"ANCILLARY_HTTP_READ_TIMEOUT":          "2s",
		"ANCILLARY_SCHEMA_DIR":                 "/etc/ancillary/schemas",
		"ANCILLARY_AI_PROVIDER":                "OpenAI",
		"ANCILLARY_AI_MODEL":                   "gpt-5",
		"ANCILLARY_AI_API_KEY":                 "secret-key",
		"ANCILLARY_AI_BASE_URL":                "https://api.example.com",
		"ANCILLARY_AI_SUMMARY_TEMPERATURE":     "0.5",
		"ANCILLARY_AI_TIMEOUT":                 "21s",
		"ANCILLARY_AI_REQUESTS_PER_MINUTE":     "12",
		"ANCILLARY_WAREHOUSE_DRIVER":           "bigquery",
		"ANCILLARY_WAREHOUSE_PROJECT":          "demo-project",
		"ANCILLARY_WAREHOUSE_LOCATION":         "EU",
		"ANCILLARY_OBJECTSTORE_BUCKET":         "ancillary-demo",
		"ANCILLARY_OBJECTSTORE_PREFIX":         "tenant-root",
		"ANCILLARY_HISTORY_DSN":                "postgres://example",
		"ANCILLARY_HISTORY_MAX_OPEN_CONNS":     "42",
		"ANCILLARY_PIPELINE_ENFORCE_ALLOWLIST": "true",
		"ANCILLARY_DASHBOARD_CACHE_TTL":        "3m",
		"ANCILLARY_DASHBOARD_CACHE_SIZE":       "2",
		"ANCILLARY_SEED_START_MONTH":           "2024-04",
		"ANCILLARY_SEED_MONTHS":                "12",
		"ANCILLARY_SEED_RANDOM_SEED":           "7",
		"ANCILLARY_LOG_LEVEL":                  "error",
	})
	cfg, err := Load("ancillary-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Service.Name != "ancillary-custom" {
		t.Fatalf("Service.Name = %q", cfg.Service.Name)
	}
	if cfg.HTTP.Address != ":9999" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.HTTP.ReadTimeout != 2*time.Second {
		t.Fatalf("HTTP.ReadTimeout = %s", cfg.HTTP.ReadTimeout)
	}
	if cfg.Schema.Dir != "/etc/ancillary/schemas" {
		t.Fatalf("Schema.Dir = %q", cfg.Schema.Dir)
	}
	if cfg.AI.Provider != ProviderOpenAI {
		t.Fatalf("AI.Provider = %q", cfg.AI.Provider)
	}
	if cfg.AI.Model != "gpt-5" {
		t.Fatalf("AI.Model = %q", cfg.AI.Model)
	}
	if cfg.AI.APIKey != "secret-key" {
		t.Fatalf("AI.APIKey = %q", cfg.AI.APIKey)
	}
	if cfg.AI.SummaryTemperature != 0.5 {
		t.Fatalf("AI.SummaryTemperature = %f", cfg.AI.SummaryTemperature)
	}
	if cfg.AI.Timeout != 21*time.Second {
		t.Fatalf("AI.Timeout = %s", cfg.AI.Timeout)
	}
	if cfg.AI.RequestsPerMinute != 12 {
		t.Fatalf("AI.RequestsPerMinute = %d", cfg.AI.RequestsPerMinute)
	}
	if cfg.Warehouse.Driver != WarehouseBigQuery {
		t.Fatalf("Warehouse.Driver = %q", cfg.Warehouse.Driver)
	}
	if cfg.Warehouse.Project != "demo-project" {
		t.Fatalf("Warehouse.Project = %q", cfg.Warehouse.Project)
	}
	if cfg.Warehouse.Location != "EU" {
		t.Fatalf("Warehouse.Location = %q", cfg.Warehouse.Location)
	}
	if cfg.ObjectStore.Bucket != "ancillary-demo" {
		t.Fatalf("ObjectStore.Bucket = %q", cfg.ObjectStore.Bucket)
	}
	if cfg.ObjectStore.Prefix != "tenant-root" {
		t.Fatalf("ObjectStore.Prefix = %q", cfg.ObjectStore.Prefix)
	}
	if cfg.History.DSN != "postgres://example" {
		t.Fatalf("History.DSN = %q", cfg.History.DSN)
	}
	if cfg.History.MaxOpenConns != 42 {
		t.Fatalf("History.MaxOpenConns = %d", cfg.History.MaxOpenConns)
	}
	if !cfg.Pipeline.EnforceAllowList {
		t.Fatal("Pipeline.EnforceAllowList = false, want true")
	}
	if cfg.Dashboard.CacheTTL != 3*time.Minute {
		t.Fatalf("Dashboard.CacheTTL = %s", cfg.Dashboard.CacheTTL)
	}
	if cfg.Dashboard.CacheSize != 2 {
		t.Fatalf("Dashboard.CacheSize = %d", cfg.Dashboard.CacheSize)
	}
	if cfg.Seed.StartMonth != "2024-04" || cfg.Seed.Months != 12 || cfg.Seed.RandomSeed != 7 {
		t.Fatalf("Seed = %+v", cfg.Seed)
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadErrorsOnInvalidValues(t *testing.T) {
	tests := []map[string]string{
		{"ANCILLARY_PROFILE": "oops"},
		{"ANCILLARY_HTTP_READ_TIMEOUT": "NaN"},
		{"ANCILLARY_AI_PROVIDER": "llama"},
		{"ANCILLARY_AI_PROVIDER": "vertex"},
		{"ANCILLARY_AI_SQL_TEMPERATURE": "bad"},
		{"ANCILLARY_AI_REQUESTS_PER_MINUTE": "-1"},
		{"ANCILLARY_WAREHOUSE_DRIVER": "snowflake"},
		{"ANCILLARY_WAREHOUSE_DRIVER": "bigquery"},
		{"ANCILLARY_HISTORY_MAX_OPEN_CONNS": "oops"},
		{"ANCILLARY_PIPELINE_ENFORCE_ALLOWLIST": "not-bool"},
		{"ANCILLARY_DASHBOARD_CACHE_SIZE": "0"},
		{"ANCILLARY_SEED_START_MONTH": "2024/01"},
		{"ANCILLARY_SEED_RANDOM_SEED": "x"},
		{"ANCILLARY_LOG_LEVEL": "verbose"},
	}
	for _, env := range tests {
		_, err := Load("ancillary-api", mapLookup(env))
		if err == nil {
			t.Fatalf("Load() expected error for env %#v", env)
		}
	}
}

func TestLoadRequiresLookup(t *testing.T) {
	if _, err := Load("ancillary-api", nil); err == nil {
		t.Fatal("Load(nil) expected error")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
