// Package merge folds newly aggregated batches into existing summaries.
package merge

import (
	"fmt"
	"math"

	"github.com/chrisdamba/slawatch/internal/models"
)

// Strategy reconciles the stored stats for a key with the stats of a new batch.
// Implementations must not modify their arguments.
type Strategy interface {
	Combine(existing, incoming models.DimensionStats) models.DimensionStats
	Name() string
}

// TotalBased recovers implied breach counts, sums counts and totals, and
// recomputes the percentage. Averages become order-weighted means.
type TotalBased struct{}

func (TotalBased) Name() string { return "total" }

func (TotalBased) Combine(existing, incoming models.DimensionStats) models.DimensionStats {
	total := existing.TotalOrders + incoming.TotalOrders
	out := models.DimensionStats{Key: existing.Key, TotalOrders: total}

	if total > 0 {
		breached := existing.BreachedOrders() + incoming.BreachedOrders()
		out.BreachPercent = math.Min(100, 100*float64(breached)/float64(total))
		out.AvgDeliveryMinutes = weightedMean(existing.AvgDeliveryMinutes, existing.TotalOrders, incoming.AvgDeliveryMinutes, incoming.TotalOrders)
		out.AvgDelayBeyondSLA = weightedMean(existing.AvgDelayBeyondSLA, existing.TotalOrders, incoming.AvgDelayBeyondSLA, incoming.TotalOrders)
	}
	out.Distribution = mergeDistribution(existing, incoming)
	return out
}

// ExponentialSmoothing blends breach percentages with a fixed weight on the
// existing value. Every other field keeps its existing value; totals are summed
// only when CombineTotals is set. The result depends on the order and size of
// batches, so merges do not commute.
type ExponentialSmoothing struct {
	Weight        float64
	CombineTotals bool
}

func (s ExponentialSmoothing) Name() string {
	return fmt.Sprintf("smoothing_%g", s.Weight)
}

func (s ExponentialSmoothing) Combine(existing, incoming models.DimensionStats) models.DimensionStats {
	out := existing
	if existing.Distribution != nil {
		d := *existing.Distribution
		out.Distribution = &d
	}
	out.BreachPercent = s.Weight*existing.BreachPercent + (1-s.Weight)*incoming.BreachPercent
	if s.CombineTotals {
		out.TotalOrders = existing.TotalOrders + incoming.TotalOrders
	}
	return out
}

func weightedMean(a float64, wa int, b float64, wb int) float64 {
	if wa+wb == 0 {
		return 0
	}
	return (a*float64(wa) + b*float64(wb)) / float64(wa+wb)
}

// mergeDistribution approximates the union of two five-number summaries. Min
// and max are exact, the quartiles are order-weighted means. A side without
// samples is ignored.
func mergeDistribution(existing, incoming models.DimensionStats) *models.FiveNumberSummary {
	a, b := existing.Distribution, incoming.Distribution
	if a != nil && a.Samples == 0 {
		a = nil
	}
	if b != nil && b.Samples == 0 {
		b = nil
	}
	switch {
	case a == nil && b == nil:
		return nil
	case a == nil:
		d := *b
		return &d
	case b == nil:
		d := *a
		return &d
	}

	wa, wb := existing.TotalOrders, incoming.TotalOrders
	if wa+wb == 0 {
		wa, wb = a.Samples, b.Samples
	}
	return &models.FiveNumberSummary{
		Min:     math.Min(a.Min, b.Min),
		Q1:      weightedMean(a.Q1, wa, b.Q1, wb),
		Median:  weightedMean(a.Median, wa, b.Median, wb),
		Q3:      weightedMean(a.Q3, wa, b.Q3, wb),
		Max:     math.Max(a.Max, b.Max),
		Samples: a.Samples + b.Samples,
	}
}
