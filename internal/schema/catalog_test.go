package schema

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogLoadsEverySource(t *testing.T) {
	catalog, err := Default()
	require.NoError(t, err)

	for _, source := range Sources {
		assert.NotNil(t, catalog.Document(source), source)
		encoded, err := catalog.JSON(source)
		require.NoError(t, err, source)
		assert.Contains(t, encoded, "\n  \"")
	}

	columns := catalog.Columns()
	require.NotEmpty(t, columns)
	var found bool
	for _, col := range columns {
		if col.Table == "nonhospitality-bi.analytics.monthly_service_kpis" && col.Name == "roi_percent" {
			found = true
			assert.Equal(t, SourceDescriptive, col.Source)
			assert.Equal(t, "FLOAT64", col.Type)
		}
	}
	assert.True(t, found, "roi_percent column not found")
}

func TestLoadFromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"monthly_service_kpis.yaml":           {Data: []byte("kpis:\n  columns:\n    - name: city\n      type: STRING\n")},
		"monthly_service_kpis_forecasts.yaml": {Data: []byte("forecasts: {}\n")},
		"market_data_schema.yaml":             {Data: []byte("- just\n- a\n- list\n")},
		"semantic_model_business.yaml":        {Data: []byte("semantic: {}\n")},
	}

	catalog, err := Load(fsys)
	require.NoError(t, err)

	columns := catalog.Columns()
	require.Len(t, columns, 1)
	assert.Equal(t, Column{Source: SourceDescriptive, Table: "kpis", Name: "city", Type: "STRING"}, columns[0])

	encoded, err := catalog.JSON(SourceMarket)
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"just\",\n  \"a\",\n  \"list\"\n]", encoded)
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load(fstest.MapFS{"monthly_service_kpis.yaml": {Data: []byte("a: 1\n")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forecast")
}

func TestLoadFailsOnInvalidYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"monthly_service_kpis.yaml":           {Data: []byte("a: [\n")},
		"monthly_service_kpis_forecasts.yaml": {Data: []byte("a: 1\n")},
		"market_data_schema.yaml":             {Data: []byte("a: 1\n")},
		"semantic_model_business.yaml":        {Data: []byte("a: 1\n")},
	}
	_, err := Load(fsys)
	require.Error(t, err)
}

func TestNewRequiresAllSources(t *testing.T) {
	_, err := New(map[Source]any{SourceDescriptive: map[string]any{}})
	require.Error(t, err)
}

func TestJSONFailsOnNonStringKeys(t *testing.T) {
	catalog, err := New(map[Source]any{
		SourceDescriptive: map[any]any{1: "one"},
		SourceForecast:    map[string]any{},
		SourceMarket:      map[string]any{},
		SourceSemantic:    map[string]any{},
	})
	require.NoError(t, err)

	_, err = catalog.JSON(SourceDescriptive)
	require.Error(t, err)
}
