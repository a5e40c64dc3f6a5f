package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ancillary-hub/ancillary/internal/llm"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

type streamingModel struct {
	chunks []string
	err    error
	calls  []llm.Request
}

func (m *streamingModel) Generate(context.Context, llm.Request) (string, error) {
	return "", errors.New("not used")
}

func (m *streamingModel) GenerateStream(_ context.Context, req llm.Request, onChunk func(string)) (string, error) {
	m.calls = append(m.calls, req)
	if m.err != nil {
		return "", m.err
	}
	var b strings.Builder
	for _, chunk := range m.chunks {
		if onChunk != nil {
			onChunk(chunk)
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

func (m *streamingModel) Provider() string { return "scripted" }

type fakeWarehouse struct {
	table tabular.Table
	err   error
	sql   []string
}

func (w *fakeWarehouse) Query(_ context.Context, sql string) (tabular.Table, error) {
	w.sql = append(w.sql, sql)
	return w.table, w.err
}

const uploaded = "service,price\nSpa,120\nGym,15\nPool,30\nGolf,200\nCasino,50\nParking,10\nLaundry,8\n"

func TestAdviseConcatenatesStreamedChunks(t *testing.T) {
	model := &streamingModel{chunks: []string{"Raise ", "spa ", "prices."}}
	var seen []string

	resp, err := New(model, nil).Advise(context.Background(), Request{Question: "How to grow spa revenue?"}, func(chunk string) {
		seen = append(seen, chunk)
	})
	require.NoError(t, err)

	assert.Equal(t, ModeAdvisor, resp.Mode)
	assert.Equal(t, "Raise spa prices.", resp.Text)
	assert.Equal(t, []string{"Raise ", "spa ", "prices."}, seen)
	require.Len(t, model.calls, 1)
	req := model.calls[0]
	assert.InDelta(t, 0.7, req.Temperature, 1e-6)
	assert.InDelta(t, 0.9, req.TopP, 1e-6)
	assert.Equal(t, int32(2048), req.MaxOutputTokens)
	assert.Contains(t, req.Prompt, "Question: How to grow spa revenue?")
	assert.Contains(t, req.Prompt, "less than 200 words")
}

func TestAdviseLimitsCSVContextToFiveRows(t *testing.T) {
	model := &streamingModel{chunks: []string{"ok"}}

	resp, err := New(model, nil).Advise(context.Background(), Request{
		Question: "Which service is priciest?",
		CSV:      strings.NewReader(uploaded),
	}, nil)
	require.NoError(t, err)

	require.NotNil(t, resp.Sample)
	assert.Equal(t, 5, resp.Sample.Len())
	prompt := model.calls[0].Prompt
	assert.Contains(t, prompt, "Here is a sample of uploaded data:")
	assert.Contains(t, prompt, "Casino")
	assert.NotContains(t, prompt, "Parking")
	assert.NotContains(t, prompt, "Laundry")
}

func TestAdviseRejectsEmptyQuestionInAdvisorMode(t *testing.T) {
	model := &streamingModel{}
	_, err := New(model, nil).Advise(context.Background(), Request{Question: "  "}, nil)
	require.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Empty(t, model.calls)
}

func TestAdviseRejectsUnknownMode(t *testing.T) {
	_, err := New(&streamingModel{}, nil).Advise(context.Background(), Request{Mode: "poetry", Question: "q"}, nil)
	require.ErrorIs(t, err, ErrUnknownMode)
}

func TestAdviseROIModeIncludesHistoryMarkdown(t *testing.T) {
	rows := make([][]any, 0, 20)
	for i := 0; i < 20; i++ {
		rows = append(rows, []any{"Gym", int64(2024), int64(i%12 + 1), float64(i)})
	}
	history, err := tabular.New([]string{"service_category", "year", "month", "roi_estimate_percent"}, rows)
	require.NoError(t, err)
	wh := &fakeWarehouse{table: history}
	model := &streamingModel{chunks: []string{"Predicted ROI: 14%"}}

	resp, err := New(model, wh).Advise(context.Background(), Request{Mode: ModeROI}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{ROIHistoryQuery}, wh.sql)
	require.NotNil(t, resp.History)
	assert.Equal(t, 20, resp.History.Len())
	assert.Equal(t, "Predicted ROI: 14%", resp.Text)

	prompt := model.calls[0].Prompt
	assert.Contains(t, prompt, "Historical ROI KPIs:")
	assert.Contains(t, prompt, "No query provided.")
	assert.Equal(t, 15, strings.Count(prompt, "| Gym"))
}

func TestAdviseROIModePropagatesWarehouseErrors(t *testing.T) {
	wh := &fakeWarehouse{err: errors.New("permission denied")}
	model := &streamingModel{}

	_, err := New(model, wh).Advise(context.Background(), Request{Mode: ModeROI, Question: "q"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Empty(t, model.calls)
}

func TestReadCSV(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("\ufeffa,b\n1,2\n"), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Equal(t, [][]any{{"1", "2"}}, table.Rows)

	_, err = ReadCSV(strings.NewReader(""), 5)
	require.ErrorIs(t, err, ErrInvalidCSV)

	_, err = ReadCSV(strings.NewReader("a,b\n1\n"), 5)
	require.ErrorIs(t, err, ErrInvalidCSV)
}
