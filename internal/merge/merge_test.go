package merge

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/slawatch/internal/aggregate"
	"github.com/chrisdamba/slawatch/internal/models"
)

func stats(total int, pct float64) models.DimensionStats {
	return models.DimensionStats{Key: "Z1", TotalOrders: total, BreachPercent: pct}
}

func TestTotalBased_Combine(t *testing.T) {
	got := TotalBased{}.Combine(stats(100, 40), stats(100, 60))
	assert.Equal(t, 200, got.TotalOrders)
	assert.InDelta(t, 50.0, got.BreachPercent, 1e-9)
	assert.Equal(t, 100, got.BreachedOrders())
}

func TestTotalBased_WeightedAverages(t *testing.T) {
	a := models.DimensionStats{Key: "Z1", TotalOrders: 100, AvgDeliveryMinutes: 40, AvgDelayBeyondSLA: 1}
	b := models.DimensionStats{Key: "Z1", TotalOrders: 300, AvgDeliveryMinutes: 48, AvgDelayBeyondSLA: 3}

	got := TotalBased{}.Combine(a, b)
	assert.InDelta(t, 46.0, got.AvgDeliveryMinutes, 1e-9)
	assert.InDelta(t, 2.5, got.AvgDelayBeyondSLA, 1e-9)
}

func TestTotalBased_Distribution(t *testing.T) {
	a := models.DimensionStats{Key: "Morning", TotalOrders: 100,
		Distribution: &models.FiveNumberSummary{Min: 30, Q1: 35, Median: 40, Q3: 45, Max: 50, Samples: 4}}
	b := models.DimensionStats{Key: "Morning", TotalOrders: 300,
		Distribution: &models.FiveNumberSummary{Min: 25, Q1: 39, Median: 44, Q3: 49, Max: 60, Samples: 2}}
	empty := models.DimensionStats{Key: "Morning", Distribution: &models.FiveNumberSummary{}}

	got := TotalBased{}.Combine(a, b).Distribution
	require.NotNil(t, got)
	assert.Equal(t, 25.0, got.Min)
	assert.Equal(t, 60.0, got.Max)
	assert.InDelta(t, 38.0, got.Q1, 1e-9)
	assert.InDelta(t, 43.0, got.Median, 1e-9)
	assert.InDelta(t, 48.0, got.Q3, 1e-9)
	assert.Equal(t, 6, got.Samples)

	// an empty side never drags min to zero
	kept := TotalBased{}.Combine(empty, a).Distribution
	require.NotNil(t, kept)
	assert.Equal(t, *a.Distribution, *kept)
}

func TestExponentialSmoothing_Combine(t *testing.T) {
	got := ExponentialSmoothing{Weight: 0.8}.Combine(stats(100, 40), stats(100, 60))
	assert.InDelta(t, 44.0, got.BreachPercent, 1e-9)
	assert.Equal(t, 100, got.TotalOrders, "totals are not combined")

	got = ExponentialSmoothing{Weight: 0.7, CombineTotals: true}.Combine(stats(100, 40), stats(50, 60))
	assert.InDelta(t, 46.0, got.BreachPercent, 1e-9)
	assert.Equal(t, 150, got.TotalOrders)
}

func zoneRecords(rng *rand.Rand, n int) []models.RawOrderRecord {
	zones := []string{"Z1", "Z2", "Z3"}
	out := make([]models.RawOrderRecord, n)
	for i := range out {
		out[i] = models.RawOrderRecord{
			Zone:               zones[rng.Intn(len(zones))],
			OrderCount:         1 + rng.Intn(400),
			AvgDeliveryMinutes: 30 + rng.Float64()*25,
		}
	}
	return out
}

func TestMerge_TotalBasedMatchesUnion(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for round := 0; round < 25; round++ {
		a := zoneRecords(rng, 1+rng.Intn(20))
		b := zoneRecords(rng, 1+rng.Intn(20))

		empty := models.NewSummary(models.ZonePerformanceView, nil)
		stepwise := Merge(Merge(empty, a, TotalBased{}), b, TotalBased{})
		union := aggregate.Aggregate(models.ZonePerformanceView, append(append([]models.RawOrderRecord{}, a...), b...))

		require.Equal(t, union.Len(), stepwise.Len())
		for _, want := range union.Entries {
			got, ok := stepwise.Get(want.Key)
			require.True(t, ok)
			assert.Equal(t, want.TotalOrders, got.TotalOrders, "zone %s", want.Key)
			assert.Equal(t, want.BreachedOrders(), got.BreachedOrders(), "zone %s", want.Key)
			assert.InDelta(t, want.AvgDeliveryMinutes, got.AvgDeliveryMinutes, 1e-9)
		}
		assert.Equal(t, union.Keys(), stepwise.Keys())
	}
}

func TestMerge_SmoothingIsOrderDependent(t *testing.T) {
	a := []models.RawOrderRecord{{Zone: "Z1", OrderCount: 100, AvgDeliveryMinutes: 50}}
	b := []models.RawOrderRecord{{Zone: "Z1", OrderCount: 100, AvgDeliveryMinutes: 40}}
	strategy := ExponentialSmoothing{Weight: 0.8}
	empty := models.NewSummary(models.ZoneBreachView, nil)

	ab, _ := Merge(Merge(empty, a, strategy), b, strategy).Get("Z1")
	ba, _ := Merge(Merge(empty, b, strategy), a, strategy).Get("Z1")

	assert.InDelta(t, 80.0, ab.BreachPercent, 1e-9)
	assert.InDelta(t, 20.0, ba.BreachPercent, 1e-9)
	assert.NotEqual(t, ab.BreachPercent, ba.BreachPercent)
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	existing := models.NewSummary(models.TimeOfDayView, []models.DimensionStats{{
		Key: "Morning", TotalOrders: 10, BreachPercent: 10, AvgDeliveryMinutes: 40,
		Distribution: &models.FiveNumberSummary{Min: 40, Q1: 40, Median: 40, Q3: 40, Max: 40, Samples: 1},
	}})
	snapshot := existing.Clone()
	batch := []models.RawOrderRecord{{TimePeriod: models.Morning, OrderCount: 10, AvgDeliveryMinutes: 60}}
	batchCopy := append([]models.RawOrderRecord(nil), batch...)

	out := Merge(existing, batch, TotalBased{})

	assert.Equal(t, snapshot, existing)
	assert.Equal(t, batchCopy, batch)
	morning, _ := out.Get("Morning")
	assert.Equal(t, 20, morning.TotalOrders)
	assert.Equal(t, 60.0, morning.Distribution.Max)
	assert.Equal(t, 40.0, existing.Entries[0].Distribution.Max)
}

func TestMerge_InsertsUnseenKeys(t *testing.T) {
	existing := models.NewSummary(models.ZoneBreachView, []models.DimensionStats{{Key: "Z2", TotalOrders: 5}})
	out := Merge(existing, []models.RawOrderRecord{{Zone: "Z1", OrderCount: 100, AvgDeliveryMinutes: 50}}, TotalBased{})

	assert.Equal(t, []string{"Z1", "Z2"}, out.Keys())
	z1, _ := out.Get("Z1")
	assert.Equal(t, 100.0, z1.BreachPercent)
}

func TestMerge_TrendStaysChronological(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 4, d, 0, 0, 0, 0, time.UTC) }
	existing := aggregate.Aggregate(models.TrendView, []models.RawOrderRecord{
		{Date: day(1), Zone: "Z1", OrderCount: 10, SLABreachFraction: 0.5},
		{Date: day(3), Zone: "Z1", OrderCount: 10, SLABreachFraction: 0.5},
	})
	batch := []models.RawOrderRecord{
		{Date: day(4), Zone: "Z1", OrderCount: 10, SLABreachFraction: 0.1},
		{Date: day(2), Zone: "Z1", OrderCount: 10, SLABreachFraction: 0.2},
		{Date: day(3), Zone: "Z2", OrderCount: 10, SLABreachFraction: 0.0},
	}

	out := Merge(existing, batch, ExponentialSmoothing{Weight: 0.7, CombineTotals: true})

	assert.Equal(t, []string{"2024-04-01", "2024-04-02", "2024-04-03", "2024-04-04"}, out.Keys())
	d3, _ := out.Get("2024-04-03")
	assert.Equal(t, 20, d3.TotalOrders)
	assert.InDelta(t, 35.0, d3.BreachPercent, 1e-9)
}

func TestMerge_EmptyBatchReturnsCopy(t *testing.T) {
	existing := models.NewSummary(models.ZoneBreachView, []models.DimensionStats{{Key: "Z1", TotalOrders: 5}})
	out := Merge(existing, nil, TotalBased{})
	assert.Equal(t, existing, out)

	out.Entries[0].TotalOrders = 99
	assert.Equal(t, 5, existing.Entries[0].TotalOrders)
}

func TestMerge_TotalOrdersNeverDecrease(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	strategies := []Strategy{TotalBased{}, ExponentialSmoothing{Weight: 0.7, CombineTotals: true}}
	for _, strategy := range strategies {
		s := models.NewSummary(models.ZonePerformanceView, nil)
		for i := 0; i < 30; i++ {
			prev := s.Clone()
			s = Merge(s, zoneRecords(rng, 5), strategy)
			for _, e := range prev.Entries {
				now, ok := s.Get(e.Key)
				require.True(t, ok)
				assert.GreaterOrEqual(t, now.TotalOrders, e.TotalOrders, strategy.Name())
			}
		}
	}
}
