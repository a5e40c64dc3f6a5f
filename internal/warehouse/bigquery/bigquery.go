// Package bigquery executes warehouse SQL on Google BigQuery.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/ancillary-hub/ancillary/internal/tabular"
	"github.com/ancillary-hub/ancillary/internal/warehouse"
)

type Config struct {
	ProjectID string
	Location  string
}

type Warehouse struct {
	client   *bigquery.Client
	location string
}

func New(ctx context.Context, cfg Config) (*Warehouse, error) {
	project := strings.TrimSpace(cfg.ProjectID)
	if project == "" {
		return nil, fmt.Errorf("bigquery project is required")
	}
	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return &Warehouse{client: client, location: strings.TrimSpace(cfg.Location)}, nil
}

func (w *Warehouse) Query(ctx context.Context, sql string) (tabular.Table, error) {
	q := w.client.Query(sql)
	if w.location != "" {
		q.Location = w.location
	}
	it, err := q.Read(ctx)
	if err != nil {
		return tabular.Table{}, queryError(err)
	}
	return collect(it, func() bigquery.Schema { return it.Schema })
}

// queryError marks BigQuery "Not found" responses so callers can tell a
// missing table from other failures.
func queryError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("run query: %w: %w", warehouse.ErrTableNotFound, err)
	}
	return fmt.Errorf("run query: %w", err)
}

func (w *Warehouse) Close() error {
	return w.client.Close()
}

type rowIterator interface {
	Next(dst interface{}) error
}

// collect drains it. The schema is only known after the first Next call, so
// it is read lazily.
func collect(it rowIterator, schema func() bigquery.Schema) (tabular.Table, error) {
	rows := make([][]any, 0)
	for {
		var values []bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return tabular.Table{}, fmt.Errorf("read row: %w", err)
		}
		row := make([]any, len(values))
		for i, value := range values {
			row[i] = value
		}
		rows = append(rows, row)
	}

	fields := schema()
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = field.Name
	}
	if len(columns) == 0 && len(rows) > 0 {
		return tabular.Table{}, fmt.Errorf("query returned rows without a schema")
	}
	return tabular.New(columns, rows)
}
