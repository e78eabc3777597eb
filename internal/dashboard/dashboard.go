package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lucsky/cuid"

	"github.com/chrisdamba/slawatch/internal/aggregate"
	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/metrics"
	"github.com/chrisdamba/slawatch/internal/models"
)

var ErrUnknownChart = errors.New("unknown chart")

// Publisher receives every summary change.
type Publisher interface {
	Publish(update models.SummaryUpdate) error
}

// ChartSnapshot is the display state of one chart.
type ChartSnapshot struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Strategy  string         `json:"strategy"`
	UpdatedAt time.Time      `json:"updated_at"`
	Summary   models.Summary `json:"summary"`
}

// Secondary holds the cuisine and menu category breakdowns.
type Secondary struct {
	Cuisines       []models.CuisinePerformance `json:"cuisines"`
	MenuCategories []models.MenuCategorySales  `json:"menu_categories"`
}

type Dashboard struct {
	charts    []*Chart
	byID      map[string]*Chart
	publisher Publisher
	now       func() time.Time

	mu        sync.RWMutex
	advisory  string
	secondary Secondary
}

// New builds a dashboard for specs. publisher may be nil.
func New(specs []ChartSpec, publisher Publisher) *Dashboard {
	d := &Dashboard{
		byID:      make(map[string]*Chart, len(specs)),
		publisher: publisher,
		now:       time.Now,
	}
	for _, spec := range specs {
		c := NewChart(spec)
		d.charts = append(d.charts, c)
		d.byID[spec.ID] = c
	}
	return d
}

// Load sets every chart's initial state from its dataset and publishes it.
// Charts whose records aggregate to nothing fall back to fallback.
func (d *Dashboard) Load(delivery, cuisine, menuItems, fallback []models.RawOrderRecord) error {
	now := d.now()
	var errs []error
	for _, c := range d.charts {
		records := delivery
		if c.spec.Dataset == DatasetCuisine {
			records = cuisine
		}
		s := c.Load(records, fallback, now)
		logging.Debug().Str("chart", c.spec.ID).Int("entries", s.Len()).Msg("chart loaded")
		errs = append(errs, d.publish(c, s, now))
	}

	d.mu.Lock()
	d.secondary = Secondary{
		Cuisines:       aggregate.Cuisine(cuisine),
		MenuCategories: aggregate.MenuCategories(menuItems),
	}
	d.mu.Unlock()
	return errors.Join(errs...)
}

// Apply feeds a live batch to every chart. Charts that change are published.
func (d *Dashboard) Apply(ctx context.Context, batch []models.RawOrderRecord) error {
	if len(batch) == 0 {
		return nil
	}
	var errs []error
	for _, c := range d.charts {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		s, changed := c.Apply(batch, d.now())
		metrics.MergeDuration.WithLabelValues(c.spec.ID).Observe(time.Since(start).Seconds())
		if !changed {
			continue
		}
		metrics.BatchesApplied.WithLabelValues(c.spec.ID, c.spec.Strategy.Name()).Inc()
		errs = append(errs, d.publish(c, s, d.now()))
	}
	return errors.Join(errs...)
}

func (d *Dashboard) publish(c *Chart, s models.Summary, at time.Time) error {
	for _, e := range s.Entries {
		metrics.ChartBreachPercent.WithLabelValues(c.spec.ID, e.Key).Set(e.BreachPercent)
	}
	if d.publisher == nil {
		return nil
	}
	err := d.publisher.Publish(models.SummaryUpdate{
		ID:          cuid.New(),
		Chart:       c.spec.ID,
		Dimension:   c.spec.View.Dimension,
		PublishedAt: at,
		Summary:     s,
	})
	if err != nil {
		return fmt.Errorf("chart %s: %w", c.spec.ID, err)
	}
	return nil
}

// Charts returns the display state of every chart in definition order.
func (d *Dashboard) Charts() []ChartSnapshot {
	out := make([]ChartSnapshot, 0, len(d.charts))
	for _, c := range d.charts {
		out = append(out, snapshot(c))
	}
	return out
}

func (d *Dashboard) Chart(id string) (ChartSnapshot, error) {
	c, ok := d.byID[id]
	if !ok {
		return ChartSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownChart, id)
	}
	return snapshot(c), nil
}

func snapshot(c *Chart) ChartSnapshot {
	s, at := c.Snapshot()
	return ChartSnapshot{
		ID:        c.spec.ID,
		Title:     c.spec.Title,
		Strategy:  c.spec.Strategy.Name(),
		UpdatedAt: at,
		Summary:   s,
	}
}

func (d *Dashboard) SetAdvisory(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.advisory = msg
}

// Advisory is the soft warning shown while sample data is in use.
func (d *Dashboard) Advisory() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.advisory
}

func (d *Dashboard) Secondary() Secondary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Secondary{
		Cuisines:       append([]models.CuisinePerformance(nil), d.secondary.Cuisines...),
		MenuCategories: append([]models.MenuCategorySales(nil), d.secondary.MenuCategories...),
	}
}
