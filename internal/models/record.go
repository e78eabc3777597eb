package models

import "time"

// RawOrderRecord is one parsed KPI row. It describes a batch of orders for a
// zone on a date, optionally broken down by weather or time of day.
type RawOrderRecord struct {
	Date               time.Time  `json:"order_date"`
	Zone               string     `json:"zone"`
	WeatherCondition   string     `json:"weather_condition,omitempty"`
	TimePeriod         TimePeriod `json:"time_period,omitempty"`
	CuisineType        string     `json:"cuisine_type,omitempty"`
	Category           string     `json:"category,omitempty"`
	OrderCount         int        `json:"orders"`
	AvgDeliveryMinutes float64    `json:"avg_delivery_min"`
	SLABreachFraction  float64    `json:"sla_breach_pct"`
	Revenue            float64    `json:"revenue,omitempty"`
	TotalItemsSold     float64    `json:"total_items_sold,omitempty"`
	TotalSales         float64    `json:"total_sales,omitempty"`
}

// Breached reports whether the record's average delivery time is over the SLA.
func (r RawOrderRecord) Breached() bool {
	return r.AvgDeliveryMinutes > SLAThresholdMinutes
}

// DateKey is the calendar-date key used by the trend view. Zero dates yield "".
func (r RawOrderRecord) DateKey() string {
	if r.Date.IsZero() {
		return ""
	}
	return r.Date.Format(DateLayout)
}

// KeyFor returns the record's value along dim.
func (r RawOrderRecord) KeyFor(dim Dimension) string {
	switch dim {
	case DimensionZone:
		return r.Zone
	case DimensionWeather:
		return r.WeatherCondition
	case DimensionTimeOfDay:
		return string(r.TimePeriod)
	case DimensionDate:
		return r.DateKey()
	default:
		return ""
	}
}
