package seed

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/parquet-go/parquet-go"

	"github.com/ancillary-hub/ancillary/internal/advisor"
	"github.com/ancillary-hub/ancillary/internal/observability"
	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/storage"
)

const defaultPartRows = 500

// TableReport describes what was written for one warehouse table.
type TableReport struct {
	Table string
	Rows  int
	Parts []string
	Bytes int64
}

type Publisher struct {
	Store    storage.ObjectStore
	PartRows int
	Logger   *slog.Logger
}

// Publish replaces every part of the four seeded tables with freshly encoded
// parquet files.
func (p *Publisher) Publish(ctx context.Context, d Dataset) ([]TableReport, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	var reports []TableReport
	steps := []func() (TableReport, error){
		func() (TableReport, error) { return publishTable(ctx, p, prompt.KPITable, d.KPIs) },
		func() (TableReport, error) { return publishTable(ctx, p, prompt.ForecastTable, d.Forecasts) },
		func() (TableReport, error) { return publishTable(ctx, p, prompt.MarketTable, d.Market) },
		func() (TableReport, error) { return publishTable(ctx, p, advisor.ROITable, d.ROI) },
	}
	for _, step := range steps {
		report, err := step()
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func publishTable[T any](ctx context.Context, p *Publisher, table string, rows []T) (TableReport, error) {
	report := TableReport{Table: table, Rows: len(rows)}
	if err := p.clear(ctx, table); err != nil {
		return report, err
	}

	partRows := p.PartRows
	if partRows <= 0 {
		partRows = defaultPartRows
	}
	for sequence, start := 0, 0; start < len(rows); sequence, start = sequence+1, start+partRows {
		end := min(start+partRows, len(rows))
		data, err := EncodeParquet(rows[start:end])
		if err != nil {
			return report, fmt.Errorf("encode %s part %d: %w", table, sequence, err)
		}
		key, err := storage.BuildPartPath(table, sequence)
		if err != nil {
			return report, err
		}
		info, err := p.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: "application/octet-stream"})
		if err != nil {
			return report, fmt.Errorf("put %s: %w", key, err)
		}
		report.Parts = append(report.Parts, key)
		report.Bytes += info.Size
	}
	p.logger().Info("seeded warehouse table",
		slog.String("table", table),
		slog.Int("rows", report.Rows),
		slog.Int("parts", len(report.Parts)),
	)
	return report, nil
}

func (p *Publisher) clear(ctx context.Context, table string) error {
	prefix, err := storage.TablePrefix(table)
	if err != nil {
		return err
	}
	existing, err := p.Store.List(ctx, prefix)
	if err != nil {
		return fmt.Errorf("list existing parts of %s: %w", table, err)
	}
	for _, object := range existing {
		if err := p.Store.Delete(ctx, object.Key); err != nil {
			return fmt.Errorf("delete %s: %w", object.Key, err)
		}
	}
	return nil
}

func (p *Publisher) logger() *slog.Logger {
	if p.Logger == nil {
		return observability.DiscardLogger()
	}
	return p.Logger
}

// EncodeParquet writes rows as a single parquet file using the struct tags
// of T as the schema.
func EncodeParquet[T any](rows []T) ([]byte, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}
	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[T](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
