package ingest

import (
	"math"
	"strings"
	"time"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
)

// ToRecords converts parsed rows into order records. A bad order_date leaves
// the zero time; numeric fields are clamped into their valid ranges.
func ToRecords(rows []Row) []models.RawOrderRecord {
	records := make([]models.RawOrderRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, toRecord(row))
	}
	return records
}

func toRecord(row Row) models.RawOrderRecord {
	rec := models.RawOrderRecord{
		Zone:               strings.TrimSpace(row.Text(models.ColumnZone)),
		WeatherCondition:   strings.TrimSpace(row.Text(models.ColumnWeatherCondition)),
		TimePeriod:         models.TimePeriod(strings.TrimSpace(row.Text(models.ColumnTimePeriod))),
		CuisineType:        strings.TrimSpace(row.Text(models.ColumnCuisineType)),
		Category:           strings.TrimSpace(row.Text(models.ColumnCategory)),
		OrderCount:         orderCount(row.Float(models.ColumnOrders)),
		AvgDeliveryMinutes: clamp(row.Float(models.ColumnAvgDeliveryMin), 0, math.MaxFloat64),
		SLABreachFraction:  clamp(row.Float(models.ColumnSLABreachPct), 0, 1),
		Revenue:            row.Float(models.ColumnRevenue),
		TotalItemsSold:     row.Float(models.ColumnTotalItemsSold),
		TotalSales:         row.Float(models.ColumnTotalSales),
	}

	if raw := strings.TrimSpace(row.Text(models.ColumnOrderDate)); raw != "" {
		d, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			logging.Debug().Str("order_date", raw).Err(err).Msg("unparseable order date")
		} else {
			rec.Date = d
		}
	}
	return rec
}

// orderCount truncates f into [0, MaxInt32].
func orderCount(f float64) int {
	if math.IsNaN(f) {
		return 0
	}
	return int(clamp(math.Trunc(f), 0, math.MaxInt32))
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}
