// Package dashboard computes the KPI cards, weakest-pair diagnosis and
// lifecycle classifications shown on the home page.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/ancillary-hub/ancillary/internal/llm"
	"github.com/ancillary-hub/ancillary/internal/observability"
	"github.com/ancillary-hub/ancillary/internal/prompt"
	"github.com/ancillary-hub/ancillary/internal/tabular"
	"github.com/ancillary-hub/ancillary/internal/warehouse"
)

var (
	KPIQuery = "SELECT service_category, city, year, month, roi_percent, profit_margin_pct, total_revenue, total_guest_count, marketing_spend_month FROM `" + prompt.KPITable + "`"

	ForecastQuery = "SELECT service_category, city, ds, actual_roi_percent, forecasted_roi_percent FROM `" + prompt.ForecastTable + "` ORDER BY service_category, city, ds"
)

const (
	cacheKey                  = "dashboard"
	defaultInsightTemperature = 0.7
)

type Options struct {
	CacheTTL           time.Duration
	CacheSize          int
	InsightTemperature float32
}

type Service struct {
	warehouse   warehouse.Warehouse
	model       llm.Client
	cache       *expirable.LRU[string, Dashboard]
	temperature float32
	now         func() time.Time
}

// NewService caches computed dashboards for opts.CacheTTL. A zero TTL
// disables caching.
func NewService(w warehouse.Warehouse, model llm.Client, opts Options) *Service {
	s := &Service{
		warehouse:   w,
		model:       model,
		temperature: opts.InsightTemperature,
		now:         time.Now,
	}
	if s.temperature == 0 {
		s.temperature = defaultInsightTemperature
	}
	if opts.CacheTTL > 0 {
		size := opts.CacheSize
		if size <= 0 {
			size = 1
		}
		s.cache = expirable.NewLRU[string, Dashboard](size, nil, opts.CacheTTL)
	}
	return s
}

func (s *Service) Load(ctx context.Context) (Dashboard, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(cacheKey); ok {
			observability.ObserveDashboardCache(true)
			return cached, nil
		}
		observability.ObserveDashboardCache(false)
	}

	kpis, forecasts, err := s.fetch(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	d, err := Compute(kpis, forecasts)
	if err != nil {
		return Dashboard{}, err
	}
	d.GeneratedAt = s.now().UTC()
	if s.cache != nil {
		s.cache.Add(cacheKey, d)
	}
	return d, nil
}

// Invalidate drops any cached dashboard.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Service) fetch(ctx context.Context) (tabular.Table, tabular.Table, error) {
	if s.warehouse == nil {
		return tabular.Table{}, tabular.Table{}, fmt.Errorf("warehouse is not configured")
	}
	var kpis, forecasts tabular.Table
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		kpis, err = s.warehouse.Query(gctx, KPIQuery)
		if errors.Is(err, warehouse.ErrTableNotFound) {
			return fmt.Errorf("%w: %w", ErrNoData, err)
		}
		if err != nil {
			return fmt.Errorf("load kpis: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		forecasts, err = s.warehouse.Query(gctx, ForecastQuery)
		if errors.Is(err, warehouse.ErrTableNotFound) {
			forecasts = tabular.Table{}
			return nil
		}
		if err != nil {
			return fmt.Errorf("load forecasts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return tabular.Table{}, tabular.Table{}, err
	}
	return kpis, forecasts, nil
}

// PairInsight asks the model for five short diagnostic bullets about pair.
func (s *Service) PairInsight(ctx context.Context, pair WeakestPair) (string, error) {
	if s.model == nil {
		return "", fmt.Errorf("insight model is not configured")
	}
	reply, err := s.model.Generate(ctx, llm.Request{
		Prompt: prompt.BuildPairInsightPrompt(prompt.PairContext{
			Service:     pair.Service,
			City:        pair.City,
			AvgROI:      pair.AvgROI,
			Trend:       pair.Direction,
			MoM:         pair.MoM,
			YoY:         pair.YoY,
			RevenueDrop: pair.RevenueChange,
			MarginDrop:  pair.MarginChange,
		}),
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate pair insight: %w", err)
	}
	return strings.TrimSpace(reply), nil
}

// WeakestPairInsight loads the dashboard and explains its weakest pair.
func (s *Service) WeakestPairInsight(ctx context.Context) (WeakestPair, string, error) {
	d, err := s.Load(ctx)
	if err != nil {
		return WeakestPair{}, "", err
	}
	if d.WeakestPair == nil {
		return WeakestPair{}, "", ErrNoData
	}
	text, err := s.PairInsight(ctx, *d.WeakestPair)
	if err != nil {
		return WeakestPair{}, "", err
	}
	return *d.WeakestPair, text, nil
}
