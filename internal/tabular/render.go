package tabular

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Text renders the table as a borderless plain-text grid, one row per line.
func Text(t Table) string {
	w := tableWriter(t)
	w.SetStyle(table.StyleLight)
	w.Style().Options = table.OptionsNoBordersAndSeparators
	return w.Render()
}

// Markdown renders the table in GitHub-flavoured markdown.
func Markdown(t Table) string {
	return tableWriter(t).RenderMarkdown()
}

func tableWriter(t Table) table.Writer {
	w := table.NewWriter()
	header := make(table.Row, len(t.Columns))
	for i, column := range t.Columns {
		header[i] = column
	}
	w.AppendHeader(header)
	for _, values := range t.Rows {
		row := make(table.Row, len(values))
		for i, value := range values {
			row[i] = formatCell(value)
		}
		w.AppendRow(row)
	}
	return w
}

func formatCell(value any) string {
	safe := SafeValue(value)
	if safe == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", safe)
}
