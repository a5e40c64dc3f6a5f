// Package advisor answers free-form revenue questions and runs the ROI
// analysis over historical semantic-model rows.
package advisor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ancillary-hub/ancillary/internal/llm"
	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/tabular"
	"github.com/ancillary-hub/ancillary/internal/warehouse"
)

type Mode string

const (
	ModeAdvisor Mode = "advisor"
	ModeROI     Mode = "roi"
)

const (
	ROITable = "nonhospitality-bi.sales_tran.semantic_business_roi"

	sampleRows  = 5
	historyRows = 15

	temperature     = 0.7
	topP            = 0.9
	maxOutputTokens = 2048
)

var ROIHistoryQuery = "SELECT * FROM `" + ROITable + "` WHERE year IS NOT NULL ORDER BY year DESC, month DESC LIMIT 100"

var (
	ErrEmptyQuestion = errors.New("question is required")
	ErrUnknownMode   = errors.New("unknown advisor mode")
	ErrInvalidCSV    = errors.New("invalid csv upload")
)

type Request struct {
	Mode     Mode
	Question string
	// CSV is an optional uploaded dataset; only its first rows reach the
	// model.
	CSV io.Reader
}

type Response struct {
	Mode    Mode           `json:"mode"`
	Text    string         `json:"text"`
	Sample  *tabular.Table `json:"sample,omitempty"`
	History *tabular.Table `json:"history,omitempty"`
}

type Advisor struct {
	model     llm.Client
	warehouse warehouse.Warehouse
}

func New(model llm.Client, w warehouse.Warehouse) *Advisor {
	return &Advisor{model: model, warehouse: w}
}

// Advise streams the model reply, passing every chunk to onChunk when it is
// non-nil, and returns the accumulated text.
func (a *Advisor) Advise(ctx context.Context, req Request, onChunk func(string)) (Response, error) {
	if a.model == nil {
		return Response{}, fmt.Errorf("advisor model is not configured")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeAdvisor
	}
	if mode != ModeAdvisor && mode != ModeROI {
		return Response{}, fmt.Errorf("%w: %q", ErrUnknownMode, req.Mode)
	}
	question := strings.TrimSpace(req.Question)
	if mode == ModeAdvisor && question == "" {
		return Response{}, ErrEmptyQuestion
	}

	resp := Response{Mode: mode}
	sampleText := ""
	if req.CSV != nil {
		sample, err := ReadCSV(req.CSV, sampleRows)
		if err != nil {
			return Response{}, err
		}
		resp.Sample = &sample
		sampleText = tabular.Text(sample)
	}

	var text string
	switch mode {
	case ModeROI:
		history, err := a.roiHistory(ctx)
		if err != nil {
			return Response{}, err
		}
		resp.History = &history
		text = prompt.BuildROIAnalysisPrompt(question, tabular.Markdown(history.Head(historyRows)), sampleText)
	default:
		text = prompt.BuildAdvisorPrompt(question, sampleText)
	}

	reply, err := a.model.GenerateStream(ctx, llm.Request{
		Prompt:          text,
		Temperature:     temperature,
		TopP:            topP,
		MaxOutputTokens: maxOutputTokens,
	}, onChunk)
	if err != nil {
		return Response{}, fmt.Errorf("generate %s reply: %w", mode, err)
	}
	resp.Text = reply
	return resp, nil
}

func (a *Advisor) roiHistory(ctx context.Context) (tabular.Table, error) {
	if a.warehouse == nil {
		return tabular.Table{}, fmt.Errorf("warehouse is not configured")
	}
	history, err := a.warehouse.Query(ctx, ROIHistoryQuery)
	if err != nil {
		return tabular.Table{}, fmt.Errorf("load roi history: %w", err)
	}
	return history, nil
}

// ReadCSV parses a header row and at most limit data rows.
func ReadCSV(r io.Reader, limit int) (tabular.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 0
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return tabular.Table{}, fmt.Errorf("%w: file is empty", ErrInvalidCSV)
		}
		return tabular.Table{}, fmt.Errorf("%w: read header: %w", ErrInvalidCSV, err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	rows := make([][]any, 0, limit)
	for len(rows) < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return tabular.Table{}, fmt.Errorf("%w: read row %d: %w", ErrInvalidCSV, len(rows)+1, err)
		}
		row := make([]any, len(record))
		for i, field := range record {
			row[i] = field
		}
		rows = append(rows, row)
	}
	return tabular.New(header, rows)
}
