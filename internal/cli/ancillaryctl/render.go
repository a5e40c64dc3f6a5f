package ancillaryctl

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/ancillary-hub/ancillary/internal/dashboard"
	"github.com/ancillary-hub/ancillary/internal/history"
	"github.com/ancillary-hub/ancillary/internal/tabular"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderAsk(w io.Writer, resp askResponse) {
	if resp.SQL != "" {
		_, _ = fmt.Fprintf(w, "SQL:\n%s\n\n", resp.SQL)
		_, _ = fmt.Fprintf(w, "Market data: %s  ML prediction: %s\n\n", yesNo(resp.UsesMarketData), yesNo(resp.UsesMLPrediction))
	}
	if resp.Table != nil {
		renderResultTable(w, *resp.Table)
		_, _ = fmt.Fprintln(w)
	}
	if resp.Summary != "" {
		_, _ = fmt.Fprintf(w, "Summary:\n%s\n", resp.Summary)
	}
}

func renderResultTable(w io.Writer, result tabular.Table) {
	if result.Empty() {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}
	t := newTable(w)
	header := make(table.Row, len(result.Columns))
	for i, column := range result.Columns {
		header[i] = column
	}
	t.AppendHeader(header)
	for _, values := range result.Rows {
		row := make(table.Row, len(values))
		for i, value := range values {
			if value == nil {
				row[i] = "NULL"
				continue
			}
			row[i] = value
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", result.Len())
}

func renderDashboard(w io.Writer, d dashboard.Dashboard) {
	_, _ = fmt.Fprintf(w, "Period: %s\n\n", d.Period.Label)

	cards := newTable(w)
	cards.AppendHeader(table.Row{"Metric", "Current", "MoM", "YoY", "Trend"})
	cards.AppendRow(table.Row{"ROI", percent(&d.ROI.Current), signed(&d.ROI.MoM), signed(d.ROI.YoY), d.ROI.Trend})
	cards.AppendRow(table.Row{"Marketing efficiency", fmt.Sprintf("%.2f", d.MER.Current), signed(&d.MER.MoM), "", ""})
	cards.Render()

	_, _ = fmt.Fprintf(w, "\nBest service: %s  Best city: %s\n", d.Rankings.BestService, d.Rankings.BestCity)
	_, _ = fmt.Fprintf(w, "Weakest service: %s  Weakest city: %s\n", d.Rankings.WeakestService, d.Rankings.WeakestCity)
	if p := d.WeakestPair; p != nil {
		_, _ = fmt.Fprintf(w, "Weakest pair: %s in %s, avg ROI %s (%s, MoM %s, YoY %s)\n",
			p.Service, p.City, percent(&p.AvgROI), p.Direction, signed(p.MoM), signed(p.YoY))
	}

	if len(d.Lifecycle) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	lifecycle := newTable(w)
	lifecycle.AppendHeader(table.Row{"Service", "City", "Stage", "Latest ROI", "Explanation"})
	for _, item := range d.Lifecycle {
		latest := "n/a"
		if n := len(item.Points); n > 0 {
			latest = percent(&item.Points[n-1].ROI)
		}
		lifecycle.AppendRow(table.Row{item.Service, item.City, item.Stage, latest, item.Explanation})
	}
	lifecycle.Render()
}

func renderHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "(no interactions)")
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Created", "Question", "Rows", "Stage"})
	for _, entry := range entries {
		stage := entry.FailedStage
		if stage == "" {
			stage = "ok"
		}
		t.AppendRow(table.Row{entry.ID, entry.CreatedAt.Local().Format(time.DateTime), truncate(entry.Question, 60), entry.RowCount, stage})
	}
	t.Render()
}

func renderHistoryEntry(w io.Writer, entry history.Entry) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"ID", entry.ID},
		{"Created", entry.CreatedAt.Local().Format(time.DateTime)},
		{"Question", entry.Question},
		{"SQL", entry.SQL},
		{"Market data", yesNo(entry.UsesMarketData)},
		{"ML prediction", yesNo(entry.UsesMLPrediction)},
		{"Rows", entry.RowCount},
		{"Duration", (time.Duration(entry.DurationMS) * time.Millisecond).String()},
		{"Summary", entry.Summary},
	})
	if entry.Error != "" {
		t.AppendRow(table.Row{"Error", entry.Error})
	}
	t.Render()
}

func percent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", *v)
}

func signed(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f", *v)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
