// Package summary turns a query result into an analyst-style narrative.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ancillary-hub/ancillary/internal/llm"
	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

const defaultTemperature = 0.3

var ErrBlankSummary = errors.New("model returned a blank summary")

type Summarizer struct {
	model       llm.Client
	temperature float32
	now         func() time.Time
}

func NewSummarizer(model llm.Client) *Summarizer {
	return &Summarizer{model: model, temperature: defaultTemperature, now: time.Now}
}

func (s *Summarizer) WithTemperature(temperature float32) *Summarizer {
	s.temperature = temperature
	return s
}

// WithClock fixes the date embedded in prompts.
func (s *Summarizer) WithClock(now func() time.Time) *Summarizer {
	if now != nil {
		s.now = now
	}
	return s
}

// Summarize sends every row of table, converted to JSON-safe records, and
// returns the model's free-text reply.
func (s *Summarizer) Summarize(ctx context.Context, question string, table tabular.Table) (string, error) {
	if s.model == nil {
		return "", fmt.Errorf("summary model is not configured")
	}
	text, err := prompt.BuildSummaryPrompt(question, table.Records(), s.now())
	if err != nil {
		return "", err
	}
	reply, err := s.model.Generate(ctx, llm.Request{Prompt: text, Temperature: s.temperature})
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrBlankSummary
	}
	return reply, nil
}
