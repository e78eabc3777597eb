package models

// SLAThresholdMinutes is the delivery time above which an order batch breaches its SLA.
const SLAThresholdMinutes = 45.0

// DateLayout is the layout of order_date values in the KPI datasets.
const DateLayout = "2006-01-02"

const (
	OrderStatusPreparing = "preparing"
	OrderStatusInTransit = "in_transit"
	OrderStatusDelivered = "delivered"
)

// TimePeriod buckets a day into the four reporting windows.
type TimePeriod string

const (
	Morning   TimePeriod = "Morning"
	Afternoon TimePeriod = "Afternoon"
	Evening   TimePeriod = "Evening"
	Night     TimePeriod = "Night"
)

// TimePeriods is the canonical display order.
var TimePeriods = []TimePeriod{Morning, Afternoon, Evening, Night}

// Index returns the canonical position of p, or -1 if p is not a known period.
func (p TimePeriod) Index() int {
	for i, tp := range TimePeriods {
		if tp == p {
			return i
		}
	}
	return -1
}

// TimePeriodForHour maps a wall-clock hour onto a reporting window.
func TimePeriodForHour(hour int) TimePeriod {
	switch {
	case hour >= 6 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}

// Dimension is the grouping axis of an aggregation.
type Dimension string

const (
	DimensionZone      Dimension = "zone"
	DimensionWeather   Dimension = "weather"
	DimensionTimeOfDay Dimension = "time_of_day"
	DimensionDate      Dimension = "date"
)

// Ordering decides how the entries of a summary are laid out for display.
type Ordering string

const (
	OrderByKey             Ordering = "key"
	OrderByAvgDeliveryDesc Ordering = "avg_delivery_desc"
	OrderByTotalOrdersDesc Ordering = "total_orders_desc"
	OrderByBreachDesc      Ordering = "breach_desc"
	OrderCanonical         Ordering = "canonical"
	OrderChronological     Ordering = "chronological"
)

// numeric CSV columns; everything else stays text
const (
	ColumnOrderDate        = "order_date"
	ColumnZone             = "zone"
	ColumnOrders           = "orders"
	ColumnAvgDeliveryMin   = "avg_delivery_min"
	ColumnSLABreachPct     = "sla_breach_pct"
	ColumnWeatherCondition = "weather_condition"
	ColumnTimePeriod       = "time_period"
	ColumnCuisineType      = "cuisine_type"
	ColumnCategory         = "category"
	ColumnRevenue          = "revenue"
	ColumnTotalItemsSold   = "total_items_sold"
	ColumnTotalSales       = "total_sales"
)

// NumericColumns lists the columns parsed as floating point.
var NumericColumns = []string{
	ColumnSLABreachPct,
	ColumnAvgDeliveryMin,
	ColumnOrders,
	ColumnRevenue,
	ColumnTotalItemsSold,
	ColumnTotalSales,
}
