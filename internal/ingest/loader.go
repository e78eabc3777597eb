package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/metrics"
	"github.com/chrisdamba/slawatch/internal/models"
)

var ErrEmptyPool = errors.New("simulation pool is empty")

// Dataset is the result of one load.
type Dataset struct {
	Initial   []models.RawOrderRecord
	Pool      []models.RawOrderRecord
	SplitDate time.Time
	Cuisine   []models.RawOrderRecord
	MenuItems []models.RawOrderRecord
	// Advisory is set when the fallback dataset replaced the delivery data.
	Advisory string
}

// FromFallback reports whether the delivery data came from the fallback set.
func (d Dataset) FromFallback() bool {
	return d.Advisory != ""
}

// Loader fetches the KPI datasets and splits delivery records into the
// initial load and the simulation pool. The split date is fixed by the first
// successful load and reused afterwards.
type Loader struct {
	delivery  Source
	cuisine   Source
	menuItems Source

	mu        sync.Mutex
	splitDate time.Time
	advisory  string
}

// NewLoader builds a loader. cuisine and menuItems may be nil. A non-zero
// splitDate pins the split instead of deriving it from the data.
func NewLoader(delivery, cuisine, menuItems Source, splitDate time.Time) *Loader {
	return &Loader{
		delivery:  delivery,
		cuisine:   cuisine,
		menuItems: menuItems,
		splitDate: splitDate,
	}
}

// NewLoaderFromConfig wires sources from configuration.
func NewLoaderFromConfig(ctx context.Context, cfg models.SourcesConfig, splitDate time.Time) (*Loader, error) {
	delivery, err := NewSource(ctx, cfg.Delivery)
	if err != nil {
		return nil, fmt.Errorf("delivery source: %w", err)
	}
	cuisine, err := NewSource(ctx, cfg.Cuisine)
	if err != nil {
		return nil, fmt.Errorf("cuisine source: %w", err)
	}
	menu, err := NewSource(ctx, cfg.MenuItems)
	if err != nil {
		return nil, fmt.Errorf("menu item source: %w", err)
	}
	return NewLoader(delivery, cuisine, menu, splitDate), nil
}

// Load fetches every dataset. It never fails: a delivery fetch problem yields
// the fallback records with an empty pool and an advisory message.
func (l *Loader) Load(ctx context.Context) Dataset {
	var ds Dataset

	records, err := l.fetchRecords(ctx, "delivery", l.delivery)
	if err == nil && len(records) == 0 {
		err = errors.New("delivery dataset has no rows")
	}
	if err != nil {
		logging.Warn().Err(err).Msg("using fallback delivery data")
		metrics.SourceFetches.WithLabelValues(sourceName(l.delivery), "fallback").Inc()
		ds.Initial = FallbackRecords()
		ds.Advisory = fmt.Sprintf("Using sample data: %v", err)
	} else {
		ds.Initial, ds.Pool, ds.SplitDate = l.split(records)
		logging.Info().
			Str("split_date", ds.SplitDate.Format(models.DateLayout)).
			Int("initial", len(ds.Initial)).
			Int("pool", len(ds.Pool)).
			Msg("delivery data split")
	}

	l.mu.Lock()
	l.advisory = ds.Advisory
	l.mu.Unlock()

	// secondary datasets degrade to empty
	if ds.Cuisine, err = l.fetchRecords(ctx, "cuisine", l.cuisine); err != nil {
		logging.Warn().Err(err).Msg("cuisine data unavailable")
	}
	if ds.MenuItems, err = l.fetchRecords(ctx, "menu_items", l.menuItems); err != nil {
		logging.Warn().Err(err).Msg("menu item data unavailable")
	}
	return ds
}

// LoadPool re-derives the simulation pool using the established split date.
func (l *Loader) LoadPool(ctx context.Context) ([]models.RawOrderRecord, error) {
	records, err := l.fetchRecords(ctx, "delivery", l.delivery)
	if err != nil {
		return nil, err
	}
	_, pool, _ := l.split(records)
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	l.mu.Lock()
	l.advisory = ""
	l.mu.Unlock()
	return pool, nil
}

// Advisory returns the message from the most recent load, "" when the real
// data is in use.
func (l *Loader) Advisory() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advisory
}

func (l *Loader) split(records []models.RawOrderRecord) (initial, pool []models.RawOrderRecord, split time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.splitDate.IsZero() {
		initial, pool, l.splitDate = SplitAtMidpoint(records)
		return initial, pool, l.splitDate
	}
	initial, pool = SplitAt(records, l.splitDate)
	return initial, pool, l.splitDate
}

func (l *Loader) fetchRecords(ctx context.Context, dataset string, src Source) ([]models.RawOrderRecord, error) {
	if src == nil {
		return nil, nil
	}
	start := time.Now()
	data, err := src.Fetch(ctx)
	metrics.SourceFetchDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", dataset, err)
	}
	metrics.SourceFetches.WithLabelValues(src.Name(), "ok").Inc()

	records := ToRecords(ParseCSV(string(data)))
	metrics.RecordsParsed.WithLabelValues(dataset).Add(float64(len(records)))
	return records, nil
}

func sourceName(src Source) string {
	if src == nil {
		return "none"
	}
	return src.Name()
}

// SplitAtMidpoint sorts records by date and splits them at the middle distinct
// date. Records on or before that date form the initial load, later ones the
// pool. Undated records stay in the initial load.
func SplitAtMidpoint(records []models.RawOrderRecord) (initial, pool []models.RawOrderRecord, split time.Time) {
	dates := distinctDates(records)
	if len(dates) == 0 {
		return append([]models.RawOrderRecord(nil), records...), nil, time.Time{}
	}
	split = dates[len(dates)/2]
	initial, pool = SplitAt(records, split)
	return initial, pool, split
}

// SplitAt partitions records around split, keeping date order.
func SplitAt(records []models.RawOrderRecord, split time.Time) (initial, pool []models.RawOrderRecord) {
	sorted := append([]models.RawOrderRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	for _, r := range sorted {
		if r.Date.After(split) {
			pool = append(pool, r)
		} else {
			initial = append(initial, r)
		}
	}
	return initial, pool
}

func distinctDates(records []models.RawOrderRecord) []time.Time {
	seen := make(map[time.Time]struct{})
	var dates []time.Time
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		if _, ok := seen[r.Date]; ok {
			continue
		}
		seen[r.Date] = struct{}{}
		dates = append(dates, r.Date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}
