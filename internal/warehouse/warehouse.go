// Package warehouse runs SQL against the analytics warehouse.
package warehouse

import (
	"context"
	"errors"
	"time"

	"github.com/ancillary-hub/ancillary/internal/observability"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

// ErrTableNotFound marks queries that reference a table the warehouse does
// not hold.
var ErrTableNotFound = errors.New("warehouse table not found")

// Warehouse executes SQL verbatim: no validation, rewriting of semantics, or
// retries. An empty result is not an error.
type Warehouse interface {
	Query(ctx context.Context, sql string) (tabular.Table, error)
}

type Func func(ctx context.Context, sql string) (tabular.Table, error)

func (f Func) Query(ctx context.Context, sql string) (tabular.Table, error) {
	return f(ctx, sql)
}

// Instrument records latency, outcome and row counts for every query.
func Instrument(driver string, w Warehouse) Warehouse {
	return Func(func(ctx context.Context, sql string) (tabular.Table, error) {
		start := time.Now()
		table, err := w.Query(ctx, sql)
		observability.ObserveWarehouseQuery(driver, table.Len(), time.Since(start), err)
		return table, err
	})
}

// WithTimeout bounds every query; zero leaves the caller's deadline alone.
func WithTimeout(timeout time.Duration, w Warehouse) Warehouse {
	if timeout <= 0 {
		return w
	}
	return Func(func(ctx context.Context, sql string) (tabular.Table, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return w.Query(ctx, sql)
	})
}
