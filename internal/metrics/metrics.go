package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitecast_upstream_calls_total",
			Help: "Total Open-Meteo API calls",
		},
		[]string{"endpoint", "status"},
	)

	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bitecast_upstream_latency_seconds",
			Help:    "Open-Meteo API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	ForecastsScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitecast_forecasts_scored_total",
			Help: "Total forecasts scored",
		},
		[]string{"species"},
	)

	TotalScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bitecast_total_score",
			Help:    "Distribution of 24 hour bite scores",
			Buckets: prometheus.LinearBuckets(10, 10, 9),
		},
		[]string{"species"},
	)

	ForecastCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitecast_forecast_cache_lookups_total",
			Help: "Weather cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)

	RefreshRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitecast_refresh_runs_total",
			Help: "Background refresh runs by outcome",
		},
		[]string{"status"},
	)
)
