// Package sqlgen turns a rendered prompt into warehouse SQL.
package sqlgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ancillary-hub/ancillary/internal/llm"
)

const maxOutputTokens = 512

// Generation is the decoded model reply. An empty SQL means the model
// declined or omitted the query.
type Generation struct {
	SQL              string `json:"sql"`
	UsesMarketData   bool   `json:"uses_market_data"`
	UsesMLPrediction bool   `json:"uses_ml_prediction"`
}

type Generator struct {
	model       llm.Client
	temperature float32
}

func NewGenerator(model llm.Client) *Generator {
	return &Generator{model: model}
}

// WithTemperature overrides the default of zero.
func (g *Generator) WithTemperature(temperature float32) *Generator {
	g.temperature = temperature
	return g
}

// Generate makes exactly one model call. No fallback query is substituted on
// failure.
func (g *Generator) Generate(ctx context.Context, prompt string) (Generation, error) {
	if g.model == nil {
		return Generation{}, fmt.Errorf("sql model is not configured")
	}
	reply, err := g.model.Generate(ctx, llm.Request{
		Prompt:          prompt,
		Temperature:     g.temperature,
		MaxOutputTokens: maxOutputTokens,
		JSON:            true,
	})
	if err != nil {
		return Generation{}, err
	}
	return ParseReply(reply)
}

// ParseReply decodes the JSON contract, tolerating markdown fences around it.
func ParseReply(reply string) (Generation, error) {
	body := stripFences(reply)
	if body == "" {
		return Generation{}, fmt.Errorf("model returned an empty reply")
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return Generation{}, fmt.Errorf("decode sql generation reply: %w", err)
	}
	if fields == nil {
		return Generation{}, fmt.Errorf("decode sql generation reply: not a JSON object")
	}
	sql, _ := fields["sql"].(string)
	return Generation{
		SQL:              strings.TrimSpace(sql),
		UsesMarketData:   flag(fields["uses_market_data"]),
		UsesMLPrediction: flag(fields["uses_ml_prediction"]),
	}, nil
}

func flag(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

func stripFences(value string) string {
	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 && !strings.ContainsAny(trimmed[:newline], "{[") {
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
