package prompt

import (
	"fmt"
	"strings"
)

// BuildAdvisorPrompt asks for a short insight, optionally grounded in a
// sample of uploaded data.
func BuildAdvisorPrompt(question, sample string) string {
	context := ""
	if sample != "" {
		context = "Here is a sample of uploaded data:\n" + sample
	}
	var b strings.Builder
	b.WriteString("You are an AI business analyst for a hotel group.\n")
	fmt.Fprintf(&b, "Context: %s\n", context)
	fmt.Fprintf(&b, "Question: %s\n", question)
	b.WriteString("Give a professional business insight in less than 200 words.\n")
	return b.String()
}

// BuildROIAnalysisPrompt combines historical ROI rows rendered as markdown
// with an optional uploaded sample.
func BuildROIAnalysisPrompt(question, historyMarkdown, sample string) string {
	if strings.TrimSpace(question) == "" {
		question = "No query provided."
	}
	var b strings.Builder
	b.WriteString("You are an AI Hotel Financial Strategist.\n")
	b.WriteString("Use the historical data and/or uploaded dataset to provide a detailed ROI analysis.\n\n")
	fmt.Fprintf(&b, "Historical ROI KPIs:\n%s\n\n", historyMarkdown)
	fmt.Fprintf(&b, "User Question:\n%s\n", question)
	if sample != "" {
		fmt.Fprintf(&b, "\nUploaded user data sample:\n%s\n", sample)
	}
	b.WriteString("\nPlease provide:\n")
	b.WriteString("1. Predicted ROI and revenue uplift.\n")
	b.WriteString("2. Risk and sensitivity analysis.\n")
	b.WriteString("3. Executive summary with key KPIs.\n")
	b.WriteString("4. If possible, suggest next best business actions.\n")
	return b.String()
}
