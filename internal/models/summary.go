package models

import (
	"math"
	"sort"
	"time"
)

// FiveNumberSummary describes the spread of per-record delivery minutes.
type FiveNumberSummary struct {
	Min     float64 `json:"min"`
	Q1      float64 `json:"q1"`
	Median  float64 `json:"median"`
	Q3      float64 `json:"q3"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// DimensionStats is the reduced state of everything seen for one dimension key.
type DimensionStats struct {
	Key                string             `json:"key"`
	TotalOrders        int                `json:"total_orders"`
	AvgDeliveryMinutes float64            `json:"avg_delivery_minutes"`
	BreachPercent      float64            `json:"breach_percent"`
	AvgDelayBeyondSLA  float64            `json:"avg_delay_beyond_sla,omitempty"`
	Distribution       *FiveNumberSummary `json:"distribution,omitempty"`
}

// BreachedOrders recovers the implied breached order count from the percentage.
func (d DimensionStats) BreachedOrders() int {
	return int(math.Round(d.BreachPercent * float64(d.TotalOrders) / 100))
}

// View pairs a dimension with the display ordering of its entries.
type View struct {
	Dimension Dimension `json:"dimension" mapstructure:"dimension"`
	Ordering  Ordering  `json:"ordering" mapstructure:"ordering"`
}

var (
	ZoneBreachView       = View{Dimension: DimensionZone, Ordering: OrderByKey}
	ZoneDeliveryTimeView = View{Dimension: DimensionZone, Ordering: OrderByAvgDeliveryDesc}
	ZonePerformanceView  = View{Dimension: DimensionZone, Ordering: OrderByTotalOrdersDesc}
	WeatherView          = View{Dimension: DimensionWeather, Ordering: OrderByBreachDesc}
	TimeOfDayView        = View{Dimension: DimensionTimeOfDay, Ordering: OrderCanonical}
	TrendView            = View{Dimension: DimensionDate, Ordering: OrderChronological}
)

// Summary is an ordered, keyed set of DimensionStats for one view.
type Summary struct {
	View    View             `json:"view"`
	Entries []DimensionStats `json:"entries"`
}

// NewSummary builds a sorted summary from entries. The slice is copied.
func NewSummary(view View, entries []DimensionStats) Summary {
	s := Summary{View: view, Entries: cloneEntries(entries)}
	s.Sort()
	return s
}

func (s Summary) Len() int {
	return len(s.Entries)
}

func (s Summary) IsEmpty() bool {
	return len(s.Entries) == 0
}

// Get returns the entry for key.
func (s Summary) Get(key string) (DimensionStats, bool) {
	for _, e := range s.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return DimensionStats{}, false
}

// Keys returns the entry keys in display order.
func (s Summary) Keys() []string {
	keys := make([]string, len(s.Entries))
	for i, e := range s.Entries {
		keys[i] = e.Key
	}
	return keys
}

// TotalOrders sums orders over every entry.
func (s Summary) TotalOrders() int {
	total := 0
	for _, e := range s.Entries {
		total += e.TotalOrders
	}
	return total
}

// Clone returns a deep copy.
func (s Summary) Clone() Summary {
	return Summary{View: s.View, Entries: cloneEntries(s.Entries)}
}

func cloneEntries(entries []DimensionStats) []DimensionStats {
	out := make([]DimensionStats, len(entries))
	for i, e := range entries {
		if e.Distribution != nil {
			d := *e.Distribution
			e.Distribution = &d
		}
		out[i] = e
	}
	return out
}

// Sort lays the entries out according to the view's ordering. Ties fall back
// to key order so repeated sorts are stable.
func (s Summary) Sort() {
	entries := s.Entries
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch s.View.Ordering {
		case OrderByAvgDeliveryDesc:
			if a.AvgDeliveryMinutes != b.AvgDeliveryMinutes {
				return a.AvgDeliveryMinutes > b.AvgDeliveryMinutes
			}
		case OrderByTotalOrdersDesc:
			if a.TotalOrders != b.TotalOrders {
				return a.TotalOrders > b.TotalOrders
			}
		case OrderByBreachDesc:
			if a.BreachPercent != b.BreachPercent {
				return a.BreachPercent > b.BreachPercent
			}
		case OrderCanonical:
			ai, bi := canonicalIndex(a.Key), canonicalIndex(b.Key)
			if ai != bi {
				return ai < bi
			}
		}
		// ISO dates sort chronologically as strings
		return a.Key < b.Key
	})
}

func canonicalIndex(key string) int {
	idx := TimePeriod(key).Index()
	if idx < 0 {
		return len(TimePeriods)
	}
	return idx
}

// SummaryUpdate is the payload published on the summary-update stream.
type SummaryUpdate struct {
	ID          string    `json:"id"`
	Chart       string    `json:"chart"`
	Dimension   Dimension `json:"dimension"`
	PublishedAt time.Time `json:"published_at"`
	Summary     Summary   `json:"summary"`
}

// SnapshotRow is one flattened summary entry, used by tabular sinks.
type SnapshotRow struct {
	UpdateID           string  `json:"update_id" parquet:"name=update_id,type=BYTE_ARRAY,convertedtype=UTF8"`
	Chart              string  `json:"chart" parquet:"name=chart,type=BYTE_ARRAY,convertedtype=UTF8"`
	Dimension          string  `json:"dimension" parquet:"name=dimension,type=BYTE_ARRAY,convertedtype=UTF8"`
	Position           int32   `json:"position" parquet:"name=position,type=INT32"`
	Key                string  `json:"key" parquet:"name=key,type=BYTE_ARRAY,convertedtype=UTF8"`
	TotalOrders        int64   `json:"total_orders" parquet:"name=total_orders,type=INT64"`
	AvgDeliveryMinutes float64 `json:"avg_delivery_minutes" parquet:"name=avg_delivery_minutes,type=DOUBLE"`
	BreachPercent      float64 `json:"breach_percent" parquet:"name=breach_percent,type=DOUBLE"`
	AvgDelayBeyondSLA  float64 `json:"avg_delay_beyond_sla" parquet:"name=avg_delay_beyond_sla,type=DOUBLE"`
	Min                float64 `json:"min" parquet:"name=min,type=DOUBLE"`
	Q1                 float64 `json:"q1" parquet:"name=q1,type=DOUBLE"`
	Median             float64 `json:"median" parquet:"name=median,type=DOUBLE"`
	Q3                 float64 `json:"q3" parquet:"name=q3,type=DOUBLE"`
	Max                float64 `json:"max" parquet:"name=max,type=DOUBLE"`
	PublishedAt        int64   `json:"published_at" parquet:"name=published_at,type=INT64"`
}

// SnapshotHeader is the column order of SnapshotRow for CSV output.
var SnapshotHeader = []string{
	"update_id", "chart", "dimension", "position", "key", "total_orders",
	"avg_delivery_minutes", "breach_percent", "avg_delay_beyond_sla",
	"min", "q1", "median", "q3", "max", "published_at",
}

// Rows flattens an update into one row per entry.
func (u SummaryUpdate) Rows() []SnapshotRow {
	rows := make([]SnapshotRow, 0, len(u.Summary.Entries))
	for i, e := range u.Summary.Entries {
		row := SnapshotRow{
			UpdateID:           u.ID,
			Chart:              u.Chart,
			Dimension:          string(u.Dimension),
			Position:           int32(i),
			Key:                e.Key,
			TotalOrders:        int64(e.TotalOrders),
			AvgDeliveryMinutes: e.AvgDeliveryMinutes,
			BreachPercent:      e.BreachPercent,
			AvgDelayBeyondSLA:  e.AvgDelayBeyondSLA,
			PublishedAt:        u.PublishedAt.Unix(),
		}
		if d := e.Distribution; d != nil {
			row.Min, row.Q1, row.Median, row.Q3, row.Max = d.Min, d.Q1, d.Median, d.Q3, d.Max
		}
		rows = append(rows, row)
	}
	return rows
}

// CuisinePerformance summarises one cuisine type across the cuisine dataset.
type CuisinePerformance struct {
	Name               string  `json:"name"`
	Orders             int     `json:"orders"`
	Revenue            float64 `json:"revenue"`
	AvgDeliveryMinutes float64 `json:"avg_delivery_minutes"`
}

// MenuCategorySales summarises one menu category across the menu item dataset.
type MenuCategorySales struct {
	Name            string  `json:"name"`
	TotalItems      float64 `json:"total_items"`
	TotalSales      float64 `json:"total_sales"`
	AvgPricePerItem float64 `json:"avg_price_per_item"`
}
