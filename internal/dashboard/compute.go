package dashboard

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ancillary-hub/ancillary/internal/tabular"
	"github.com/ancillary-hub/ancillary/internal/trend"
)

var ErrNoData = errors.New("no KPI rows available")

const (
	DirectionUpward    = "Upward"
	DirectionDeclining = "Declining"
)

type Period struct {
	Year  int    `json:"year"`
	Month int    `json:"month"`
	Label string `json:"label"`
}

// ROICard holds the mean ROI across all service and city pairs for the
// latest month. YoY is nil without a reading twelve months earlier.
type ROICard struct {
	Current float64  `json:"current"`
	MoM     float64  `json:"mom"`
	YoY     *float64 `json:"yoy"`
	Trend   string   `json:"trend"`
}

// MERCard is the marketing efficiency ratio: revenue per unit of marketing
// spend, summed over all pairs for the month.
type MERCard struct {
	Current float64 `json:"current"`
	MoM     float64 `json:"mom"`
}

type Rankings struct {
	BestService    string `json:"best_service"`
	BestCity       string `json:"best_city"`
	WeakestService string `json:"weakest_service"`
	WeakestCity    string `json:"weakest_city"`
}

type WeakestPair struct {
	Service       string   `json:"service_category"`
	City          string   `json:"city"`
	AvgROI        float64  `json:"avg_roi"`
	MoM           *float64 `json:"mom"`
	YoY           *float64 `json:"yoy"`
	RevenueChange float64  `json:"revenue_change"`
	MarginChange  float64  `json:"margin_change"`
	Direction     string   `json:"direction"`
}

type Point struct {
	Date     string  `json:"date"`
	ROI      float64 `json:"roi"`
	Forecast bool    `json:"forecast"`
}

type Lifecycle struct {
	Service     string      `json:"service_category"`
	City        string      `json:"city"`
	Stage       trend.Label `json:"stage"`
	Explanation string      `json:"explanation"`
	Points      []Point     `json:"points"`
}

type Dashboard struct {
	Period         Period       `json:"period"`
	PreviousPeriod *Period      `json:"previous_period,omitempty"`
	ROI            ROICard      `json:"roi"`
	MER            MERCard      `json:"mer"`
	Rankings       Rankings     `json:"rankings"`
	WeakestPair    *WeakestPair `json:"weakest_pair,omitempty"`
	Lifecycle      []Lifecycle  `json:"lifecycle"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

type pairKey struct {
	service string
	city    string
}

type kpiRow struct {
	pair      pairKey
	month     int
	roi       float64
	hasROI    bool
	margin    float64
	revenue   float64
	marketing float64
}

type forecastRow struct {
	pair      pairKey
	date      time.Time
	actual    float64
	hasActual bool
	predicted float64
	hasPred   bool
}

// Compute derives every dashboard card from KPI and forecast rows. It is
// pure; the caller stamps GeneratedAt.
func Compute(kpis, forecasts tabular.Table) (Dashboard, error) {
	rows, err := readKPIs(kpis)
	if err != nil {
		return Dashboard{}, err
	}
	if len(rows) == 0 {
		return Dashboard{}, ErrNoData
	}
	forecastRows, err := readForecasts(forecasts)
	if err != nil {
		return Dashboard{}, err
	}

	months := monthlyTotals(rows)
	latest := months[len(months)-1]

	d := Dashboard{
		Period:    periodOf(latest.month),
		ROI:       roiCard(months),
		MER:       merCard(months),
		Rankings:  rankings(rows),
		Lifecycle: lifecycles(rows, forecastRows, latest.month),
	}
	if len(months) > 1 {
		prev := periodOf(months[len(months)-2].month)
		d.PreviousPeriod = &prev
	}
	d.WeakestPair = weakestPair(rows, latest.month)
	return d, nil
}

func readKPIs(table tabular.Table) ([]kpiRow, error) {
	for _, column := range []string{"service_category", "city", "year", "month", "roi_percent"} {
		if _, ok := table.ColumnIndex(column); !ok {
			return nil, fmt.Errorf("kpi rows missing column %q", column)
		}
	}
	rows := make([]kpiRow, 0, table.Len())
	for i := range table.Rows {
		year, okYear := intValue(table, i, "year")
		month, okMonth := intValue(table, i, "month")
		if !okYear || !okMonth || month < 1 || month > 12 {
			continue
		}
		row := kpiRow{
			pair:  pairKey{service: stringValue(table, i, "service_category"), city: stringValue(table, i, "city")},
			month: monthIndex(year, month),
		}
		row.roi, row.hasROI = floatValue(table, i, "roi_percent")
		row.margin, _ = floatValue(table, i, "profit_margin_pct")
		row.revenue, _ = floatValue(table, i, "total_revenue")
		row.marketing, _ = floatValue(table, i, "marketing_spend_month")
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(a, b int) bool { return rows[a].month < rows[b].month })
	return rows, nil
}

func readForecasts(table tabular.Table) ([]forecastRow, error) {
	if len(table.Columns) == 0 {
		return nil, nil
	}
	for _, column := range []string{"service_category", "city", "ds"} {
		if _, ok := table.ColumnIndex(column); !ok {
			return nil, fmt.Errorf("forecast rows missing column %q", column)
		}
	}
	rows := make([]forecastRow, 0, table.Len())
	for i := range table.Rows {
		raw, _ := table.Value(i, "ds")
		date, ok := tabular.Date(raw)
		if !ok {
			continue
		}
		row := forecastRow{
			pair: pairKey{service: stringValue(table, i, "service_category"), city: stringValue(table, i, "city")},
			date: time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		}
		row.actual, row.hasActual = floatValue(table, i, "actual_roi_percent")
		row.predicted, row.hasPred = floatValue(table, i, "forecasted_roi_percent")
		rows = append(rows, row)
	}
	return rows, nil
}

type monthTotal struct {
	month     int
	roiSum    float64
	roiCount  int
	revenue   float64
	marketing float64
}

func (m monthTotal) meanROI() float64 {
	if m.roiCount == 0 {
		return 0
	}
	return m.roiSum / float64(m.roiCount)
}

func (m monthTotal) mer() float64 {
	spend := m.marketing
	if spend == 0 {
		spend = 1
	}
	return m.revenue / spend
}

// monthlyTotals returns one entry per month, oldest first. rows must be
// sorted by month.
func monthlyTotals(rows []kpiRow) []monthTotal {
	var months []monthTotal
	for _, row := range rows {
		if len(months) == 0 || months[len(months)-1].month != row.month {
			months = append(months, monthTotal{month: row.month})
		}
		current := &months[len(months)-1]
		if row.hasROI {
			current.roiSum += row.roi
			current.roiCount++
		}
		current.revenue += row.revenue
		current.marketing += row.marketing
	}
	return months
}

func roiCard(months []monthTotal) ROICard {
	latest := months[len(months)-1]
	card := ROICard{Current: latest.meanROI()}
	if len(months) > 1 {
		card.MoM = card.Current - months[len(months)-2].meanROI()
	}
	for _, m := range months {
		if m.month == latest.month-12 && m.roiCount > 0 {
			yoy := card.Current - m.meanROI()
			card.YoY = &yoy
		}
	}
	card.Trend = "negative"
	if card.MoM > 0 {
		card.Trend = "positive"
	}
	return card
}

func merCard(months []monthTotal) MERCard {
	latest := months[len(months)-1]
	card := MERCard{Current: latest.mer()}
	if len(months) > 1 {
		card.MoM = card.Current - months[len(months)-2].mer()
	}
	return card
}

type mean struct {
	sum   float64
	count int
}

func (m mean) value() float64 {
	return m.sum / float64(m.count)
}

func rankings(rows []kpiRow) Rankings {
	services := map[string]*mean{}
	cities := map[string]*mean{}
	for _, row := range rows {
		if !row.hasROI {
			continue
		}
		accumulate(services, row.pair.service, row.roi)
		accumulate(cities, row.pair.city, row.roi)
	}
	var r Rankings
	r.BestService, r.WeakestService = extremes(services)
	r.BestCity, r.WeakestCity = extremes(cities)
	return r
}

func accumulate(groups map[string]*mean, key string, value float64) {
	m, ok := groups[key]
	if !ok {
		m = &mean{}
		groups[key] = m
	}
	m.sum += value
	m.count++
}

// extremes returns the keys with the highest and lowest mean, breaking ties
// by name.
func extremes(groups map[string]*mean) (best, worst string) {
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for i, key := range keys {
		v := groups[key].value()
		if i == 0 || v > groups[best].value() {
			best = key
		}
		if i == 0 || v < groups[worst].value() {
			worst = key
		}
	}
	return best, worst
}

// weakestPair averages ROI per pair over the trailing three calendar months
// ending at latestMonth and returns the lowest.
func weakestPair(rows []kpiRow, latestMonth int) *WeakestPair {
	window := map[pairKey]*mean{}
	for _, row := range rows {
		if row.month < latestMonth-2 || !row.hasROI {
			continue
		}
		m, ok := window[row.pair]
		if !ok {
			m = &mean{}
			window[row.pair] = m
		}
		m.sum += row.roi
		m.count++
	}
	if len(window) == 0 {
		return nil
	}
	pairs := make([]pairKey, 0, len(window))
	for key := range window {
		pairs = append(pairs, key)
	}
	sort.Slice(pairs, func(a, b int) bool {
		va, vb := window[pairs[a]].value(), window[pairs[b]].value()
		if va != vb {
			return va < vb
		}
		if pairs[a].service != pairs[b].service {
			return pairs[a].service < pairs[b].service
		}
		return pairs[a].city < pairs[b].city
	})
	key := pairs[0]

	var recent []kpiRow
	byMonth := map[int]kpiRow{}
	for _, row := range rows {
		if row.pair != key || !row.hasROI {
			continue
		}
		byMonth[row.month] = row
		if row.month >= latestMonth-2 {
			recent = append(recent, row)
		}
	}

	weakest := &WeakestPair{
		Service:   key.service,
		City:      key.city,
		AvgROI:    window[key].value(),
		Direction: DirectionDeclining,
	}
	last := recent[len(recent)-1]
	if len(recent) > 1 {
		prev := recent[len(recent)-2]
		mom := last.roi - prev.roi
		weakest.MoM = &mom
		weakest.RevenueChange = last.revenue - prev.revenue
		weakest.MarginChange = last.margin - prev.margin
		if mom > 0 {
			weakest.Direction = DirectionUpward
		}
	}
	if yearAgo, ok := byMonth[last.month-12]; ok {
		yoy := last.roi - yearAgo.roi
		weakest.YoY = &yoy
	}
	return weakest
}

// lifecycles merges actual KPI readings with forecast rows per pair. Points
// dated after the latest actual month are flagged as forecasts.
func lifecycles(rows []kpiRow, forecasts []forecastRow, latestMonth int) []Lifecycle {
	latestActual := monthStart(latestMonth)
	series := map[pairKey][]Point{}
	add := func(key pairKey, date time.Time, roi float64) {
		series[key] = append(series[key], Point{
			Date:     date.Format("2006-01-02"),
			ROI:      roi,
			Forecast: date.After(latestActual),
		})
	}
	for _, row := range rows {
		if row.hasROI {
			add(row.pair, monthStart(row.month), row.roi)
		}
	}
	for _, row := range forecasts {
		if row.hasActual {
			add(row.pair, row.date, row.actual)
		}
	}
	for _, row := range forecasts {
		if row.hasPred {
			add(row.pair, row.date, row.predicted)
		}
	}

	keys := make([]pairKey, 0, len(series))
	for key := range series {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(a, b int) bool {
		if keys[a].service != keys[b].service {
			return keys[a].service < keys[b].service
		}
		return keys[a].city < keys[b].city
	})

	out := make([]Lifecycle, 0, len(keys))
	for _, key := range keys {
		points := series[key]
		sort.SliceStable(points, func(a, b int) bool { return points[a].Date < points[b].Date })
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.ROI
		}
		stage, explanation := trend.Classify(values)
		out = append(out, Lifecycle{
			Service:     key.service,
			City:        key.city,
			Stage:       stage,
			Explanation: explanation,
			Points:      points,
		})
	}
	return out
}

func monthIndex(year, month int) int {
	return year*12 + month - 1
}

func monthStart(index int) time.Time {
	return time.Date(index/12, time.Month(index%12+1), 1, 0, 0, 0, 0, time.UTC)
}

func periodOf(index int) Period {
	start := monthStart(index)
	return Period{
		Year:  start.Year(),
		Month: int(start.Month()),
		Label: fmt.Sprintf("%s %d", start.Month(), start.Year()),
	}
}

func stringValue(table tabular.Table, row int, column string) string {
	value, _ := table.Value(row, column)
	return tabular.String(value)
}

func floatValue(table tabular.Table, row int, column string) (float64, bool) {
	value, ok := table.Value(row, column)
	if !ok {
		return 0, false
	}
	return tabular.Float(value)
}

func intValue(table tabular.Table, row int, column string) (int, bool) {
	value, ok := table.Value(row, column)
	if !ok {
		return 0, false
	}
	return tabular.Int(value)
}
