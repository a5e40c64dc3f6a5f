// Package prompt renders every instruction sent to the generative model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ancillary-hub/ancillary/internal/schema"
)

const (
	KPITable      = "nonhospitality-bi.analytics.monthly_service_kpis"
	ForecastTable = "nonhospitality-bi.analytics.monthly_service_kpis_forecasts"
	MarketTable   = "nonhospitality-bi.raw.market_data"

	ROIModel        = "nonhospitality-bi.analytics.roi_regression_model"
	GuestCountModel = "nonhospitality-bi.analytics.predict_guest_count"

	JoinKeys = "k.city = m.city AND k.service_category = m.service_category\n  AND k.year = m.year AND k.month = m.month"
)

// AllowedTables and AllowedModels are the only relations the generated SQL
// may reference.
var (
	AllowedTables = []string{KPITable, ForecastTable, MarketTable}
	AllowedModels = []string{ROIModel, GuestCountModel}
)

var (
	PredictionTriggers = []string{"predict", "forecast", "projection", "expected", "next month", "next quarter"}
	MarketTriggers     = []string{"market", "competitor", "demand", "utilization", "price", "discount", "seasonality", "sentiment", "rating"}
)

var schemaSections = []struct {
	title  string
	source schema.Source
}{
	{"HISTORICAL", schema.SourceDescriptive},
	{"FORECAST", schema.SourceForecast},
	{"MARKET", schema.SourceMarket},
	{"SEMANTIC MODEL", schema.SourceSemantic},
}

const rule = "------------------------------------------"

// BuildSQLPrompt embeds the allow-lists, trigger lexicons, join keys, output
// contract and every schema document around the question. It fails only when
// the catalog is missing or a document cannot be encoded as JSON.
func BuildSQLPrompt(question string, catalog *schema.Catalog) (string, error) {
	if catalog == nil {
		return "", fmt.Errorf("schema catalog is nil")
	}
	sections := make([]string, 0, len(schemaSections))
	for _, section := range schemaSections {
		encoded, err := catalog.JSON(section.source)
		if err != nil {
			return "", err
		}
		sections = append(sections, section.title+":\n"+encoded)
	}

	var b strings.Builder
	b.WriteString("\nYou are a BigQuery SQL generator for hotel analytics.\n\n")
	b.WriteString("STRICT RULES:\n- Allowed tables:\n")
	for _, table := range AllowedTables {
		fmt.Fprintf(&b, "  • %s\n", backtick(table))
	}
	b.WriteString("\n- Allowed ML models:\n")
	fmt.Fprintf(&b, "  • ROI: MODEL %s\n", backtick(ROIModel))
	fmt.Fprintf(&b, "  • Guest count: MODEL %s\n\n", backtick(GuestCountModel))
	fmt.Fprintf(&b, "- Use ML only if user asks:\n  %s.\n\n", quoteList(PredictionTriggers))
	fmt.Fprintf(&b, "- Join MARKET_DATA ONLY IF user mentions:\n  %s.\n\n", strings.Join(MarketTriggers, ", "))
	fmt.Fprintf(&b, "JOIN keys:\n  %s\n\n", JoinKeys)
	b.WriteString("- NEVER invent columns.\n")
	b.WriteString("- ONLY use columns from schemas below.\n")
	b.WriteString("- ALWAYS return JSON with fields:\n")
	b.WriteString("{\n  \"sql\": \"...\",\n  \"uses_market_data\": true/false,\n  \"uses_ml_prediction\": true/false\n}\n\n")
	b.WriteString(rule + "\nSCHEMAS\n" + rule + "\n")
	b.WriteString(strings.Join(sections, "\n\n"))
	b.WriteString("\n\n" + rule + "\nUSER QUESTION:\n")
	fmt.Fprintf(&b, "\"\"\"%s\"\"\"\n\nGenerate SQL now.\n", question)
	return b.String(), nil
}

// Intent reports which trigger lexicons a question hits.
type Intent struct {
	Market     bool `json:"market"`
	Prediction bool `json:"prediction"`
}

func DetectIntent(question string) Intent {
	lower := strings.ToLower(question)
	return Intent{
		Market:     containsAny(lower, MarketTriggers),
		Prediction: containsAny(lower, PredictionTriggers),
	}
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

func backtick(name string) string {
	return "`" + name + "`"
}

func quoteList(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, ", ")
}
