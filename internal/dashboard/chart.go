// Package dashboard owns per-chart summary state and applies live batches to it.
package dashboard

import (
	"sync"
	"time"

	"github.com/chrisdamba/slawatch/internal/aggregate"
	"github.com/chrisdamba/slawatch/internal/merge"
	"github.com/chrisdamba/slawatch/internal/models"
)

// Dataset names the KPI dataset a chart is initially built from.
type Dataset string

const (
	DatasetDelivery Dataset = "delivery"
	DatasetCuisine  Dataset = "cuisine"
)

// ChartSpec describes a chart as data: what it groups by, how it orders, and
// how new batches are reconciled.
type ChartSpec struct {
	ID       string
	Title    string
	View     models.View
	Strategy merge.Strategy
	Dataset  Dataset
}

// DefaultCharts is the standard chart set. Smoothing weights come from cfg.
func DefaultCharts(cfg models.SmoothingConfig) []ChartSpec {
	return []ChartSpec{
		{
			ID:       "zone-breach",
			Title:    "SLA Breach % by Zone",
			View:     models.ZoneBreachView,
			Strategy: merge.ExponentialSmoothing{Weight: cfg.ZoneBreachWeight},
			Dataset:  DatasetDelivery,
		},
		{
			ID:       "delivery-time-by-zone",
			Title:    "Average Delivery Time by Zone",
			View:     models.ZoneDeliveryTimeView,
			Strategy: merge.TotalBased{},
			Dataset:  DatasetDelivery,
		},
		{
			ID:       "zone-performance",
			Title:    "Driver Zone Performance",
			View:     models.ZonePerformanceView,
			Strategy: merge.TotalBased{},
			Dataset:  DatasetDelivery,
		},
		{
			ID:       "weather",
			Title:    "SLA Breach by Weather",
			View:     models.WeatherView,
			Strategy: merge.TotalBased{},
			Dataset:  DatasetCuisine,
		},
		{
			ID:       "time-of-day",
			Title:    "SLA Breach by Time of Day",
			View:     models.TimeOfDayView,
			Strategy: merge.TotalBased{},
			Dataset:  DatasetCuisine,
		},
		{
			ID:       "trend",
			Title:    "SLA Breach Trend",
			View:     models.TrendView,
			Strategy: merge.ExponentialSmoothing{Weight: cfg.TrendWeight, CombineTotals: true},
			Dataset:  DatasetDelivery,
		},
	}
}

// Chart holds one chart's summary. Each chart has its own lock; charts never
// share state.
type Chart struct {
	spec ChartSpec

	mu        sync.RWMutex
	summary   models.Summary
	updatedAt time.Time
}

func NewChart(spec ChartSpec) *Chart {
	return &Chart{spec: spec, summary: models.NewSummary(spec.View, nil)}
}

func (c *Chart) Spec() ChartSpec {
	return c.spec
}

// Load sets the initial summary from records, or from fallback when records
// aggregate to nothing.
func (c *Chart) Load(records, fallback []models.RawOrderRecord, now time.Time) models.Summary {
	s := aggregate.Aggregate(c.spec.View, records)
	if s.IsEmpty() {
		s = aggregate.Aggregate(c.spec.View, fallback)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = s
	c.updatedAt = now
	return s.Clone()
}

// Apply merges batch into the chart. When the batch has nothing for this
// chart's dimension the summary is left as is and changed is false.
func (c *Chart) Apply(batch []models.RawOrderRecord, now time.Time) (summary models.Summary, changed bool) {
	incoming := aggregate.Aggregate(c.spec.View, batch)

	c.mu.Lock()
	defer c.mu.Unlock()
	if incoming.IsEmpty() {
		return c.summary.Clone(), false
	}
	c.summary = merge.MergeSummaries(c.summary, incoming, c.spec.Strategy)
	c.updatedAt = now
	return c.summary.Clone(), true
}

// Snapshot returns a copy of the current summary and when it last changed.
func (c *Chart) Snapshot() (models.Summary, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.summary.Clone(), c.updatedAt
}
