package simulator

import (
	"sync"

	"github.com/chrisdamba/slawatch/internal/models"
)

// StatsTracker keeps the running LiveStats of the order feed.
type StatsTracker struct {
	mu    sync.RWMutex
	stats models.LiveStats
}

func NewStatsTracker() *StatsTracker {
	return &StatsTracker{stats: models.LiveStats{OrdersByZone: make(map[string]int)}}
}

func (t *StatsTracker) RecordOrder(o models.OrderEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := &t.stats
	s.TotalOrders++
	s.AvgDeliveryTime += (float64(o.DeliveryMinutes) - s.AvgDeliveryTime) / float64(s.TotalOrders)
	s.OrdersByZone[o.Zone]++
	if o.Breached() {
		s.SLABreaches++
	}
}

// RecordBatch counts the orders carried by a replayed batch.
func (t *StatsTracker) RecordBatch(batch []models.RawOrderRecord) {
	orders := 0
	for _, r := range batch {
		orders += r.OrderCount
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalBatchedOrders += orders
	t.stats.LastBatchSize = len(batch)
}

// Snapshot returns a copy safe to hand to other goroutines.
func (t *StatsTracker) Snapshot() models.LiveStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := t.stats
	out.OrdersByZone = make(map[string]int, len(t.stats.OrdersByZone))
	for k, v := range t.stats.OrdersByZone {
		out.OrdersByZone[k] = v
	}
	return out
}
