package prompt

import (
	"fmt"
	"strings"
)

// PairContext describes the weakest service and city combination.
type PairContext struct {
	Service     string
	City        string
	AvgROI      float64
	Trend       string
	MoM         *float64
	YoY         *float64
	RevenueDrop float64
	MarginDrop  float64
}

func BuildPairInsightPrompt(pair PairContext) string {
	var b strings.Builder
	b.WriteString("\nYou are a senior revenue optimization analyst.\n\n")
	b.WriteString("Provide a VERY SHORT business insight for the weakest service–city pair.\n")
	b.WriteString("STRICT: 5 bullet points, each max 12 words.\n\n")
	b.WriteString("Context:\n")
	fmt.Fprintf(&b, "- Service: %s\n", pair.Service)
	fmt.Fprintf(&b, "- City: %s\n", pair.City)
	fmt.Fprintf(&b, "- Avg ROI (3M): %.2f%%\n", pair.AvgROI)
	fmt.Fprintf(&b, "- ROI Trend: %s\n", pair.Trend)
	fmt.Fprintf(&b, "- MoM ROI: %s\n", percentOrNA(pair.MoM))
	fmt.Fprintf(&b, "- YoY ROI: %s\n", percentOrNA(pair.YoY))
	fmt.Fprintf(&b, "- Revenue Drop: %.2f\n", pair.RevenueDrop)
	fmt.Fprintf(&b, "- Margin Drop: %.2f\n\n", pair.MarginDrop)
	b.WriteString("Deliver EXACTLY:\n")
	b.WriteString("1. Root cause hint\n")
	b.WriteString("2. Operational bottleneck\n")
	b.WriteString("3. Pricing/demand issue\n")
	b.WriteString("4. Quick action\n")
	b.WriteString("5. Risk if not fixed\n\n")
	b.WriteString("Tone: Sharp, diagnostic, no long paragraphs.\n")
	return b.String()
}

func percentOrNA(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}
