// Package seed generates a deterministic hotel ancillary dataset and
// publishes it as parquet parts for the local warehouse.
package seed

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

var (
	Services = []string{"Spa", "Gym", "Gaming", "Dining", "Parking"}
	Cities   = []string{"Berlin", "Dubai", "London", "Paris"}
)

const forecastHorizon = 3

type KPIRow struct {
	ServiceCategory     string  `parquet:"service_category"`
	City                string  `parquet:"city"`
	Year                int64   `parquet:"year"`
	Month               int64   `parquet:"month"`
	TotalRevenue        float64 `parquet:"total_revenue"`
	TotalCost           float64 `parquet:"total_cost"`
	GrossProfit         float64 `parquet:"gross_profit"`
	ProfitMarginPct     float64 `parquet:"profit_margin_pct"`
	ROIPercent          float64 `parquet:"roi_percent"`
	TotalGuestCount     int64   `parquet:"total_guest_count"`
	AvgSpendPerGuest    float64 `parquet:"avg_spend_per_guest"`
	MarketingSpendMonth float64 `parquet:"marketing_spend_month"`
}

// ForecastRow holds either an actual reading or a forecast; DS is days since
// the Unix epoch.
type ForecastRow struct {
	ServiceCategory      string   `parquet:"service_category"`
	City                 string   `parquet:"city"`
	DS                   int32    `parquet:"ds,date"`
	ActualROIPercent     *float64 `parquet:"actual_roi_percent,optional"`
	ForecastedROIPercent *float64 `parquet:"forecasted_roi_percent,optional"`
	ForecastedROILower   *float64 `parquet:"forecasted_roi_lower,optional"`
	ForecastedROIUpper   *float64 `parquet:"forecasted_roi_upper,optional"`
	ForecastedRevenue    *float64 `parquet:"forecasted_revenue,optional"`
}

type MarketRow struct {
	ServiceCategory        string  `parquet:"service_category"`
	City                   string  `parquet:"city"`
	Year                   int64   `parquet:"year"`
	Month                  int64   `parquet:"month"`
	OurAvgPrice            float64 `parquet:"our_avg_price"`
	CompetitorAvgPrice     float64 `parquet:"competitor_avg_price"`
	MarketDemandIndex      float64 `parquet:"market_demand_index"`
	UtilizationRate        float64 `parquet:"utilization_rate"`
	DiscountRatePct        float64 `parquet:"discount_rate_pct"`
	SeasonalityIndex       float64 `parquet:"seasonality_index"`
	CustomerSentimentScore float64 `parquet:"customer_sentiment_score"`
	AvgRating              float64 `parquet:"avg_rating"`
}

type ROIRow struct {
	ServiceCategory    string  `parquet:"service_category"`
	City               string  `parquet:"city"`
	Year               int64   `parquet:"year"`
	Month              int64   `parquet:"month"`
	Revenue            float64 `parquet:"revenue"`
	OperatingCost      float64 `parquet:"operating_cost"`
	LaunchCost         float64 `parquet:"launch_cost"`
	ROIEstimatePercent float64 `parquet:"roi_estimate_percent"`
	PaybackMonths      float64 `parquet:"payback_months"`
}

type Dataset struct {
	KPIs      []KPIRow
	Forecasts []ForecastRow
	Market    []MarketRow
	ROI       []ROIRow
}

type profile struct {
	baseRevenue float64
	costRatio   float64
	growth      float64
	avgSpend    float64
	price       float64
	launchCost  float64
}

type Generator struct {
	rnd    *rand.Rand
	start  time.Time
	months int
}

// NewGenerator parses startMonth as YYYY-MM. The same seed always yields the
// same dataset.
func NewGenerator(seed int64, startMonth string, months int) (*Generator, error) {
	start, err := time.Parse("2006-01", startMonth)
	if err != nil {
		return nil, fmt.Errorf("invalid start month %q: %w", startMonth, err)
	}
	if months <= 0 {
		return nil, fmt.Errorf("months must be > 0")
	}
	return &Generator{rnd: rand.New(rand.NewSource(seed)), start: start, months: months}, nil
}

func (g *Generator) Generate() Dataset {
	var d Dataset
	for _, service := range Services {
		for _, city := range Cities {
			p := g.profile()
			var rois []float64
			for m := 0; m < g.months; m++ {
				at := g.start.AddDate(0, m, 0)
				season := seasonality(at.Month(), service)
				kpi := g.kpi(service, city, at, m, season, p)
				d.KPIs = append(d.KPIs, kpi)
				d.Market = append(d.Market, g.market(service, city, at, season, p))
				d.ROI = append(d.ROI, g.roi(service, city, at, kpi, p))
				rois = append(rois, kpi.ROIPercent)
			}
			d.Forecasts = append(d.Forecasts, g.forecast(service, city, rois, p)...)
		}
	}
	return d
}

func (g *Generator) profile() profile {
	return profile{
		baseRevenue: 8000 + g.rnd.Float64()*42000,
		costRatio:   0.45 + g.rnd.Float64()*0.5,
		growth:      -0.01 + g.rnd.Float64()*0.025,
		avgSpend:    15 + g.rnd.Float64()*85,
		price:       20 + g.rnd.Float64()*180,
		launchCost:  20000 + g.rnd.Float64()*80000,
	}
}

func (g *Generator) kpi(service, city string, at time.Time, index int, season float64, p profile) KPIRow {
	revenue := p.baseRevenue * season * (1 + p.growth*float64(index)) * g.noise(0.08)
	cost := revenue * p.costRatio * g.noise(0.05)
	marketing := revenue * (0.04 + g.rnd.Float64()*0.06)
	profit := revenue - cost
	return KPIRow{
		ServiceCategory:     service,
		City:                city,
		Year:                int64(at.Year()),
		Month:               int64(at.Month()),
		TotalRevenue:        round2(revenue),
		TotalCost:           round2(cost),
		GrossProfit:         round2(profit),
		ProfitMarginPct:     round2(profit / revenue * 100),
		ROIPercent:          round2((revenue - cost - marketing) / (cost + marketing) * 100),
		TotalGuestCount:     int64(math.Max(1, math.Round(revenue/p.avgSpend))),
		AvgSpendPerGuest:    round2(p.avgSpend),
		MarketingSpendMonth: round2(marketing),
	}
}

func (g *Generator) market(service, city string, at time.Time, season float64, p profile) MarketRow {
	ours := p.price * g.noise(0.05)
	return MarketRow{
		ServiceCategory:        service,
		City:                   city,
		Year:                   int64(at.Year()),
		Month:                  int64(at.Month()),
		OurAvgPrice:            round2(ours),
		CompetitorAvgPrice:     round2(ours * (0.85 + g.rnd.Float64()*0.3)),
		MarketDemandIndex:      round2(100 * season * g.noise(0.1)),
		UtilizationRate:        round2(math.Min(0.98, 0.4+0.4*season*g.noise(0.1))),
		DiscountRatePct:        round2(g.rnd.Float64() * 20),
		SeasonalityIndex:       round2(season),
		CustomerSentimentScore: round2(-0.2 + g.rnd.Float64()*1.2),
		AvgRating:              round2(3 + g.rnd.Float64()*2),
	}
}

func (g *Generator) roi(service, city string, at time.Time, kpi KPIRow, p profile) ROIRow {
	launch := p.launchCost / 12
	estimate := (kpi.TotalRevenue - kpi.TotalCost - launch) / (kpi.TotalCost + launch) * 100
	monthlyProfit := kpi.TotalRevenue - kpi.TotalCost
	payback := 0.0
	if monthlyProfit > 0 {
		payback = p.launchCost / monthlyProfit
	}
	return ROIRow{
		ServiceCategory:    service,
		City:               city,
		Year:               int64(at.Year()),
		Month:              int64(at.Month()),
		Revenue:            kpi.TotalRevenue,
		OperatingCost:      kpi.TotalCost,
		LaunchCost:         round2(launch),
		ROIEstimatePercent: round2(estimate),
		PaybackMonths:      round2(payback),
	}
}

// forecast emits the last six actual readings followed by a linear
// projection over the forecast horizon.
func (g *Generator) forecast(service, city string, rois []float64, p profile) []ForecastRow {
	history := rois
	if len(history) > 6 {
		history = history[len(history)-6:]
	}
	firstHistory := g.start.AddDate(0, len(rois)-len(history), 0)

	rows := make([]ForecastRow, 0, len(history)+forecastHorizon)
	for i, value := range history {
		actual := value
		rows = append(rows, ForecastRow{
			ServiceCategory:  service,
			City:             city,
			DS:               epochDays(firstHistory.AddDate(0, i, 0)),
			ActualROIPercent: &actual,
		})
	}

	slope := 0.0
	if len(history) > 1 {
		slope = (history[len(history)-1] - history[0]) / float64(len(history)-1)
	}
	last := history[len(history)-1]
	nextMonth := g.start.AddDate(0, len(rois), 0)
	for h := 1; h <= forecastHorizon; h++ {
		predicted := round2(last + slope*float64(h) + g.rnd.NormFloat64())
		spread := round2(2 + float64(h)*1.5)
		lower, upper := round2(predicted-spread), round2(predicted+spread)
		revenue := round2(p.baseRevenue * (1 + p.growth*float64(len(rois)+h)))
		rows = append(rows, ForecastRow{
			ServiceCategory:      service,
			City:                 city,
			DS:                   epochDays(nextMonth.AddDate(0, h-1, 0)),
			ForecastedROIPercent: &predicted,
			ForecastedROILower:   &lower,
			ForecastedROIUpper:   &upper,
			ForecastedRevenue:    &revenue,
		})
	}
	return rows
}

func (g *Generator) noise(amplitude float64) float64 {
	return 1 + (g.rnd.Float64()*2-1)*amplitude
}

// seasonality peaks in summer for outdoor-leaning services and in winter
// for the rest.
func seasonality(month time.Month, service string) float64 {
	phase := 2 * math.Pi * float64(month-1) / 12
	switch service {
	case "Spa", "Dining":
		return 1 + 0.2*math.Cos(phase)
	default:
		return 1 - 0.2*math.Cos(phase)
	}
}

func epochDays(t time.Time) int32 {
	return int32(t.Sub(time.Unix(0, 0).UTC()).Hours() / 24)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
