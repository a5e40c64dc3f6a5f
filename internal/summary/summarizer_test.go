package summary

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancillary-hub/ancillary/internal/llm"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

type scriptedModel struct {
	reply string
	err   error
	calls []llm.Request
}

func (m *scriptedModel) Generate(_ context.Context, req llm.Request) (string, error) {
	m.calls = append(m.calls, req)
	return m.reply, m.err
}

func (m *scriptedModel) GenerateStream(context.Context, llm.Request, func(string)) (string, error) {
	return "", errors.New("not used")
}

func (m *scriptedModel) Provider() string { return "scripted" }

func fixedClock() time.Time {
	return time.Date(2025, time.March, 4, 10, 0, 0, 0, time.UTC)
}

func TestSummarizeEmbedsDateAndSafeRecords(t *testing.T) {
	model := &scriptedModel{reply: "  Spa ROI is up.\n"}
	table, err := tabular.New([]string{"city", "roi_percent"}, [][]any{
		{"Berlin", 12.5},
		{"Paris", math.NaN()},
	})
	require.NoError(t, err)

	got, err := NewSummarizer(model).WithClock(fixedClock).Summarize(context.Background(), "How is spa doing?", table)
	require.NoError(t, err)
	assert.Equal(t, "Spa ROI is up.", got)

	require.Len(t, model.calls, 1)
	req := model.calls[0]
	assert.InDelta(t, 0.3, req.Temperature, 1e-6)
	assert.False(t, req.JSON)
	assert.Contains(t, req.Prompt, "CURRENT DATE: 2025-03-04")
	assert.Contains(t, req.Prompt, "How is spa doing?")
	assert.Contains(t, req.Prompt, `"roi_percent": null`)
	assert.Contains(t, req.Prompt, `"city": "Berlin"`)
}

func TestSummarizePropagatesModelErrors(t *testing.T) {
	model := &scriptedModel{err: errors.New("quota exceeded")}
	_, err := NewSummarizer(model).Summarize(context.Background(), "q", tabular.Table{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestSummarizeRejectsBlankReply(t *testing.T) {
	model := &scriptedModel{reply: " \n"}
	_, err := NewSummarizer(model).Summarize(context.Background(), "q", tabular.Table{})
	require.ErrorIs(t, err, ErrBlankSummary)
}

func TestSummarizeRequiresModel(t *testing.T) {
	_, err := NewSummarizer(nil).Summarize(context.Background(), "q", tabular.Table{})
	require.Error(t, err)
}
