package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// BuildSummaryPrompt grounds the analyst prompt in records, which must
// already be JSON-safe.
func BuildSummaryPrompt(question string, records []map[string]any, today time.Time) (string, error) {
	if records == nil {
		records = []map[string]any{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary data: %w", err)
	}

	var b strings.Builder
	b.WriteString("\nYou are a business analyst.\n\n")
	fmt.Fprintf(&b, "CURRENT DATE: %s\n\n", today.Format("2006-01-02"))
	fmt.Fprintf(&b, "USER QUESTION:\n%s\n\n", question)
	fmt.Fprintf(&b, "DATA (DO NOT HALLUCINATE):\n%s\n\n", data)
	b.WriteString("TASK:\n")
	b.WriteString("- Provide insights\n")
	b.WriteString("- Explain trends, anomalies\n")
	b.WriteString("- Avoid hallucination\n")
	b.WriteString("- Use ONLY data provided\n")
	return b.String(), nil
}
