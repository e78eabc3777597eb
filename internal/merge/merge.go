package merge

import (
	"github.com/chrisdamba/slawatch/internal/aggregate"
	"github.com/chrisdamba/slawatch/internal/models"
)

// Merge aggregates batch along existing's view and folds it in with strategy.
// The returned summary is new; existing and batch are left untouched. Batches
// are not deduplicated, so applying one twice counts it twice.
func Merge(existing models.Summary, batch []models.RawOrderRecord, strategy Strategy) models.Summary {
	return MergeSummaries(existing, aggregate.Aggregate(existing.View, batch), strategy)
}

// MergeSummaries folds incoming into existing. Keys only present in incoming
// are inserted as aggregated. The result is laid out in existing's view order.
func MergeSummaries(existing, incoming models.Summary, strategy Strategy) models.Summary {
	if incoming.IsEmpty() {
		return existing.Clone()
	}

	entries := existing.Clone().Entries
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Key] = i
	}

	for _, in := range incoming.Clone().Entries {
		if i, ok := index[in.Key]; ok {
			entries[i] = strategy.Combine(entries[i], in)
			continue
		}
		index[in.Key] = len(entries)
		entries = append(entries, in)
	}
	return models.NewSummary(existing.View, entries)
}
