package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slawatch_source_fetches_total",
			Help: "Dataset fetches by source and outcome",
		},
		[]string{"source", "outcome"}, // "ok", "error", "fallback"
	)

	SourceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slawatch_source_fetch_duration_seconds",
			Help:    "Duration of dataset fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slawatch_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	RecordsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slawatch_records_parsed_total",
			Help: "Records produced by CSV ingestion",
		},
		[]string{"dataset"},
	)

	// Merge engine
	BatchesApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slawatch_batches_applied_total",
			Help: "Batches merged into a chart summary",
		},
		[]string{"chart", "strategy"},
	)

	MergeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slawatch_merge_duration_seconds",
			Help:    "Time spent aggregating and merging one batch into one chart",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		},
		[]string{"chart"},
	)

	ChartBreachPercent = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slawatch_chart_breach_percent",
			Help: "Current breach percentage per chart entry",
		},
		[]string{"chart", "key"},
	)

	// Simulation feed
	SimulatedOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slawatch_simulated_orders_total",
			Help: "Synthetic single orders generated",
		},
		[]string{"zone", "breached"},
	)

	SimulationRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slawatch_simulation_running",
			Help: "1 while the simulation tickers are active",
		},
	)

	// Stream and sinks
	UpdatesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slawatch_summary_updates_published_total",
			Help: "Summary updates published on the stream",
		},
		[]string{"dimension"},
	)

	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slawatch_sink_writes_total",
			Help: "Output sink writes by destination and outcome",
		},
		[]string{"destination", "outcome"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slawatch_api_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slawatch_websocket_connections_active",
			Help: "Currently connected WebSocket clients",
		},
	)
)
