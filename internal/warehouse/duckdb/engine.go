// Package duckdb serves the warehouse from parquet parts in object storage,
// for development and demos without BigQuery.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/ancillary-hub/ancillary/internal/storage"
	"github.com/ancillary-hub/ancillary/internal/tabular"
	"github.com/ancillary-hub/ancillary/internal/warehouse"
)

type Engine struct {
	Store  storage.ObjectStore
	Tables []string
}

// NewEngine exposes each of tables as a view named by its fully qualified
// BigQuery name.
func NewEngine(store storage.ObjectStore, tables []string) *Engine {
	return &Engine{Store: store, Tables: tables}
}

func (e *Engine) Query(ctx context.Context, sqlText string) (tabular.Table, error) {
	sqlText = stripTrailingSemicolons(sqlText)
	if sqlText == "" {
		return tabular.Table{}, fmt.Errorf("sql is required")
	}
	if e.Store == nil {
		return tabular.Table{}, fmt.Errorf("object store is required")
	}

	workDir, err := os.MkdirTemp("", "ancillary-query-")
	if err != nil {
		return tabular.Table{}, fmt.Errorf("create query temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return tabular.Table{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	var missing []string
	for index, table := range e.Tables {
		localPaths, err := e.download(ctx, workDir, index, table)
		if err != nil {
			return tabular.Table{}, err
		}
		if len(localPaths) == 0 {
			missing = append(missing, table)
			continue
		}
		viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, quoteIdent(table), quoteStringArray(localPaths))
		if _, err := db.ExecContext(ctx, viewSQL); err != nil {
			return tabular.Table{}, fmt.Errorf("create view for table %q: %w", table, err)
		}
	}

	rows, err := db.QueryContext(ctx, rewriteBackticks(sqlText))
	if err != nil {
		lower := strings.ToLower(sqlText)
		for _, table := range missing {
			if strings.Contains(lower, strings.ToLower(table)) {
				return tabular.Table{}, fmt.Errorf("execute query: %w: %s has no parts: %w", warehouse.ErrTableNotFound, table, err)
			}
		}
		return tabular.Table{}, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return tabular.Table{}, fmt.Errorf("query columns: %w", err)
	}
	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return tabular.Table{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return tabular.Table{}, fmt.Errorf("iterate rows: %w", err)
	}
	return tabular.New(columns, resultRows)
}

func (e *Engine) download(ctx context.Context, workDir string, tableIndex int, table string) ([]string, error) {
	prefix, err := storage.TablePrefix(table)
	if err != nil {
		return nil, err
	}
	objects, err := e.Store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list parts of %q: %w", table, err)
	}
	var localPaths []string
	for partIndex, object := range objects {
		if !storage.IsParquet(object.Key) {
			continue
		}
		reader, err := e.Store.Get(ctx, object.Key)
		if err != nil {
			return nil, fmt.Errorf("get object %q: %w", object.Key, err)
		}
		localPath := filepath.Join(workDir, fmt.Sprintf("t%02d_%05d.parquet", tableIndex, partIndex))
		if err := writeFile(localPath, reader); err != nil {
			_ = reader.Close()
			return nil, fmt.Errorf("write local parquet file %q: %w", localPath, err)
		}
		if err := reader.Close(); err != nil {
			return nil, fmt.Errorf("close object %q: %w", object.Key, err)
		}
		localPaths = append(localPaths, localPath)
	}
	return localPaths, nil
}

// rewriteBackticks turns BigQuery `quoted` identifiers into DuckDB "quoted"
// identifiers, leaving string literals untouched.
func rewriteBackticks(sqlText string) string {
	var b strings.Builder
	b.Grow(len(sqlText))
	inLiteral, inIdent := false, false
	for _, r := range sqlText {
		switch {
		case inLiteral:
			if r == '\'' {
				inLiteral = false
			}
			b.WriteRune(r)
		case r == '\'' && !inIdent:
			inLiteral = true
			b.WriteRune(r)
		case r == '`':
			inIdent = !inIdent
			b.WriteRune('"')
		case r == '"' && inIdent:
			b.WriteString(`""`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

func quoteStringArray(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, value := range values {
		quoted = append(quoted, `'`+strings.ReplaceAll(value, `'`, `''`)+`'`)
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
