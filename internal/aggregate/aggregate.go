// Package aggregate reduces order records into per-dimension summaries.
package aggregate

import (
	"math"

	"github.com/chrisdamba/slawatch/internal/models"
)

type accumulator struct {
	orders    int
	weighted  float64 // minutes × orders
	breached  int
	breachSum float64 // Σ fraction×100, date dimension
	delaySum  float64 // Σ max(0, minutes−SLA), zone dimension
	records   int
	perRecord []float64
}

// Aggregate reduces records along view.Dimension and lays the result out in the
// view's ordering. Records with no value for the dimension are skipped.
//
// The date dimension reports breach as the per-record mean of the breach
// fraction, the others derive it from orders of records over the SLA.
func Aggregate(view models.View, records []models.RawOrderRecord) models.Summary {
	accs := make(map[string]*accumulator)
	for _, r := range records {
		key := r.KeyFor(view.Dimension)
		if key == "" {
			continue
		}
		if view.Dimension == models.DimensionTimeOfDay && r.TimePeriod.Index() < 0 {
			continue
		}

		acc, ok := accs[key]
		if !ok {
			acc = &accumulator{}
			accs[key] = acc
		}
		acc.orders += r.OrderCount
		acc.weighted += r.AvgDeliveryMinutes * float64(r.OrderCount)
		if r.Breached() {
			acc.breached += r.OrderCount
		}
		acc.breachSum += r.SLABreachFraction * 100
		acc.delaySum += math.Max(0, r.AvgDeliveryMinutes-models.SLAThresholdMinutes)
		acc.records++
		acc.perRecord = append(acc.perRecord, r.AvgDeliveryMinutes)
	}

	if len(accs) == 0 {
		return models.NewSummary(view, nil)
	}

	// time of day always reports every period once any is present
	if view.Dimension == models.DimensionTimeOfDay {
		for _, p := range models.TimePeriods {
			if _, ok := accs[string(p)]; !ok {
				accs[string(p)] = &accumulator{}
			}
		}
	}

	entries := make([]models.DimensionStats, 0, len(accs))
	for key, acc := range accs {
		entries = append(entries, acc.stats(key, view.Dimension))
	}
	return models.NewSummary(view, entries)
}

func (a *accumulator) stats(key string, dim models.Dimension) models.DimensionStats {
	st := models.DimensionStats{Key: key, TotalOrders: a.orders}
	if a.orders > 0 {
		st.AvgDeliveryMinutes = a.weighted / float64(a.orders)
		st.BreachPercent = 100 * float64(a.breached) / float64(a.orders)
	}

	switch dim {
	case models.DimensionDate:
		if a.records > 0 {
			st.BreachPercent = a.breachSum / float64(a.records)
		}
	case models.DimensionZone:
		if a.records > 0 {
			st.AvgDelayBeyondSLA = a.delaySum / float64(a.records)
		}
	case models.DimensionTimeOfDay:
		if len(a.perRecord) > 0 {
			d := FiveNumber(a.perRecord)
			st.Distribution = &d
		}
	}
	return st
}
