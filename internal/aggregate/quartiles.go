package aggregate

import (
	"sort"

	"github.com/chrisdamba/slawatch/internal/models"
)

// FiveNumber summarises values with truncating nearest-rank quartiles:
// Q = sorted[floor(n×p)]. Nothing is interpolated. values is not modified.
func FiveNumber(values []float64) models.FiveNumberSummary {
	n := len(values)
	if n == 0 {
		return models.FiveNumberSummary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	at := func(p float64) float64 {
		return sorted[int(float64(n)*p)]
	}
	return models.FiveNumberSummary{
		Min:     sorted[0],
		Q1:      at(0.25),
		Median:  at(0.5),
		Q3:      at(0.75),
		Max:     sorted[n-1],
		Samples: n,
	}
}
