package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	pipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ancillary_pipeline_runs_total",
			Help: "Total number of question pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)
	pipelineStageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ancillary_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds.",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"stage"},
	)
	pipelineStageFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ancillary_pipeline_stage_failures_total",
			Help: "Total number of pipeline runs aborted by stage.",
		},
		[]string{"stage"},
	)
	llmCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ancillary_llm_calls_total",
			Help: "Total number of generative model calls.",
		},
		[]string{"provider", "mode", "status"},
	)
	llmCallDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ancillary_llm_call_duration_seconds",
			Help:    "Generative model call latency in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"provider", "mode"},
	)
	warehouseQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ancillary_warehouse_queries_total",
			Help: "Total number of warehouse queries.",
		},
		[]string{"driver", "status"},
	)
	warehouseQueryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ancillary_warehouse_query_duration_seconds",
			Help:    "Warehouse query latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver"},
	)
	warehouseRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ancillary_warehouse_rows_returned",
			Help:    "Rows returned per successful warehouse query.",
			Buckets: []float64{0, 1, 10, 50, 100, 500, 1000, 5000, 10000},
		},
	)
	dashboardCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ancillary_dashboard_cache_total",
			Help: "Dashboard cache lookups by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		pipelineRunsTotal,
		pipelineStageDurationSeconds,
		pipelineStageFailuresTotal,
		llmCallsTotal,
		llmCallDurationSeconds,
		warehouseQueriesTotal,
		warehouseQueryDurationSeconds,
		warehouseRowsReturned,
		dashboardCacheTotal,
	)
}

func ObservePipelineRun(outcome string) {
	pipelineRunsTotal.WithLabelValues(outcome).Inc()
}

func ObservePipelineStage(stage string, elapsed time.Duration, failed bool) {
	pipelineStageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
	if failed {
		pipelineStageFailuresTotal.WithLabelValues(stage).Inc()
	}
}

func ObserveLLMCall(provider, mode string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmCallsTotal.WithLabelValues(provider, mode, status).Inc()
	llmCallDurationSeconds.WithLabelValues(provider, mode).Observe(elapsed.Seconds())
}

func ObserveWarehouseQuery(driver string, rows int, elapsed time.Duration, err error) {
	warehouseQueryDurationSeconds.WithLabelValues(driver).Observe(elapsed.Seconds())
	if err != nil {
		warehouseQueriesTotal.WithLabelValues(driver, "error").Inc()
		return
	}
	warehouseQueriesTotal.WithLabelValues(driver, "ok").Inc()
	warehouseRowsReturned.Observe(float64(rows))
}

func ObserveDashboardCache(hit bool) {
	if hit {
		dashboardCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	dashboardCacheTotal.WithLabelValues("miss").Inc()
}
