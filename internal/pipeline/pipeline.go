// Package pipeline answers natural-language questions by generating SQL,
// running it against the warehouse and summarizing the rows.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ancillary-hub/ancillary/internal/history"
	"github.com/ancillary-hub/ancillary/internal/observability"
	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/schema"
	"github.com/ancillary-hub/ancillary/internal/sqlgen"
	"github.com/ancillary-hub/ancillary/internal/tabular"
	"github.com/ancillary-hub/ancillary/internal/warehouse"
)

const NoDataSummary = "No data available for this query."

type Generator interface {
	Generate(ctx context.Context, prompt string) (sqlgen.Generation, error)
}

type Guard interface {
	Check(sql string) error
}

type Summarizer interface {
	Summarize(ctx context.Context, question string, table tabular.Table) (string, error)
}

type Recorder interface {
	Record(ctx context.Context, entry history.Entry) (history.Entry, error)
}

// Result carries whatever the run produced before it stopped. Table is nil
// unless execution succeeded; Err is nil only on the success paths.
type Result struct {
	SQL              string
	Table            *tabular.Table
	Summary          string
	UsesMarketData   bool
	UsesMLPrediction bool
	Err              error
}

// FailedStage reports the stage that aborted the run, if any.
func (r Result) FailedStage() (Stage, bool) {
	var stageErr *StageError
	if errors.As(r.Err, &stageErr) {
		return stageErr.Stage, true
	}
	return 0, false
}

func (r Result) ErrorMessage() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Pipeline wires the stages together. Guard and Recorder are optional.
type Pipeline struct {
	Catalog    *schema.Catalog
	Generator  Generator
	Guard      Guard
	Warehouse  warehouse.Warehouse
	Summarizer Summarizer
	Recorder   Recorder
	Logger     *slog.Logger
}

// Answer runs PromptBuild, SQLGeneration, Execution, EmptyCheck and Summary
// in order. Every failure is terminal and nothing is retried.
func (p *Pipeline) Answer(ctx context.Context, question string) Result {
	start := time.Now()
	logger := observability.LoggerWithTrace(ctx, p.logger())

	result := p.run(ctx, question, logger)

	outcome := "answered"
	if stage, failed := result.FailedStage(); failed {
		outcome = stage.String()
		logger.Warn("question pipeline failed",
			slog.String("stage", stage.String()),
			slog.String("error", result.ErrorMessage()),
		)
	} else if result.Summary == NoDataSummary && result.Table != nil && result.Table.Empty() {
		outcome = "no_data"
	}
	observability.ObservePipelineRun(outcome)
	logger.Info("question pipeline finished",
		slog.String("outcome", outcome),
		slog.Duration("duration", time.Since(start)),
	)

	p.record(ctx, logger, question, result, time.Since(start))
	return result
}

func (p *Pipeline) run(ctx context.Context, question string, logger *slog.Logger) Result {
	var result Result

	var text string
	err := p.timeStage(StagePromptBuild, func() error {
		var err error
		text, err = prompt.BuildSQLPrompt(question, p.Catalog)
		return err
	})
	if err != nil {
		result.Err = stageError(StagePromptBuild, err)
		return result
	}

	var generation sqlgen.Generation
	err = p.timeStage(StageSQLGeneration, func() error {
		if p.Generator == nil {
			return errors.New("sql generator is not configured")
		}
		var err error
		generation, err = p.Generator.Generate(ctx, text)
		if err != nil {
			return err
		}
		if generation.SQL == "" {
			return ErrEmptySQL
		}
		if p.Guard != nil {
			return p.Guard.Check(generation.SQL)
		}
		return nil
	})
	if err != nil {
		result.Err = stageError(StageSQLGeneration, err)
		return result
	}
	result.SQL = generation.SQL
	result.UsesMarketData = generation.UsesMarketData
	result.UsesMLPrediction = generation.UsesMLPrediction
	logger.Debug("generated sql",
		slog.String("sql", generation.SQL),
		slog.Bool("uses_market_data", generation.UsesMarketData),
		slog.Bool("uses_ml_prediction", generation.UsesMLPrediction),
	)

	var table tabular.Table
	err = p.timeStage(StageExecution, func() error {
		if p.Warehouse == nil {
			return errors.New("warehouse is not configured")
		}
		var err error
		table, err = p.Warehouse.Query(ctx, generation.SQL)
		return err
	})
	if err != nil {
		result.Err = stageError(StageExecution, err)
		return result
	}
	result.Table = &table
	logger.Debug("query executed", slog.Int("rows", table.Len()))

	if table.Empty() {
		result.Summary = NoDataSummary
		return result
	}

	var summary string
	err = p.timeStage(StageSummary, func() error {
		if p.Summarizer == nil {
			return errors.New("summarizer is not configured")
		}
		var err error
		summary, err = p.Summarizer.Summarize(ctx, question, table)
		return err
	})
	if err != nil {
		result.Err = stageError(StageSummary, err)
		return result
	}
	result.Summary = summary
	return result
}

func (p *Pipeline) timeStage(stage Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	observability.ObservePipelineStage(stage.String(), time.Since(start), err != nil)
	return err
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, question string, result Result, elapsed time.Duration) {
	if p.Recorder == nil {
		return
	}
	entry := history.Entry{
		Question:         question,
		SQL:              result.SQL,
		UsesMarketData:   result.UsesMarketData,
		UsesMLPrediction: result.UsesMLPrediction,
		Summary:          result.Summary,
		Error:            result.ErrorMessage(),
		DurationMS:       elapsed.Milliseconds(),
	}
	if result.Table != nil {
		entry.RowCount = result.Table.Len()
	}
	if stage, failed := result.FailedStage(); failed {
		entry.FailedStage = stage.String()
	}
	if _, err := p.Recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		logger.Warn("record interaction failed", slog.String("error", err.Error()))
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return observability.DiscardLogger()
	}
	return p.Logger
}
