package ingest

import (
	"time"

	"github.com/chrisdamba/slawatch/internal/models"
)

var fallbackRows = []struct {
	date    string
	zone    string
	orders  int
	minutes float64
	breach  float64
}{
	{"2024-04-01", "Z1", 1398, 44.95, 0.48},
	{"2024-04-01", "Z2", 1313, 44.90, 0.47},
	{"2024-04-02", "Z1", 1370, 45.08, 0.49},
	{"2024-04-02", "Z2", 1295, 43.67, 0.45},
	{"2024-04-03", "Z1", 1410, 45.32, 0.51},
	{"2024-04-03", "Z2", 1325, 44.12, 0.46},
	{"2024-04-04", "Z1", 1385, 46.01, 0.52},
	{"2024-04-04", "Z2", 1340, 43.89, 0.44},
	{"2024-04-05", "Z1", 1450, 45.75, 0.50},
	{"2024-04-05", "Z2", 1380, 44.32, 0.48},
}

// FallbackRecords is the fixed sample dataset used whenever the delivery
// dataset cannot be fetched or yields nothing. A fresh slice is returned on
// every call.
func FallbackRecords() []models.RawOrderRecord {
	records := make([]models.RawOrderRecord, 0, len(fallbackRows))
	for _, r := range fallbackRows {
		d, _ := time.Parse(models.DateLayout, r.date)
		records = append(records, models.RawOrderRecord{
			Date:               d,
			Zone:               r.zone,
			OrderCount:         r.orders,
			AvgDeliveryMinutes: r.minutes,
			SLABreachFraction:  r.breach,
		})
	}
	return records
}
