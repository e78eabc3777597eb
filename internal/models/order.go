package models

import "time"

// OrderEvent is a single synthetic order produced by the live feed.
type OrderEvent struct {
	OrderID         string     `json:"order_id"`
	CuisineType     string     `json:"cuisine_type"`
	Timestamp       time.Time  `json:"timestamp"`
	Zone            string     `json:"zone"`
	TotalAmount     float64    `json:"total_amount"`
	Status          string     `json:"status"` // "preparing", "in_transit", "delivered"
	DeliveryMinutes int        `json:"delivery_minutes"`
	TimePeriod      TimePeriod `json:"time_period"`
}

// Breached reports whether the order missed the SLA.
func (o OrderEvent) Breached() bool {
	return float64(o.DeliveryMinutes) > SLAThresholdMinutes
}

// LiveStats is the running tally of the live order feed.
type LiveStats struct {
	TotalOrders        int            `json:"total_orders"`
	TotalBatchedOrders int            `json:"total_batched_orders"`
	LastBatchSize      int            `json:"last_batch_size"`
	AvgDeliveryTime    float64        `json:"avg_delivery_time"`
	OrdersByZone       map[string]int `json:"orders_by_zone"`
	SLABreaches        int            `json:"sla_breaches"`
}

// BreachRate is the percentage of generated orders that breached.
func (s LiveStats) BreachRate() float64 {
	if s.TotalOrders == 0 {
		return 0
	}
	return float64(s.SLABreaches) / float64(s.TotalOrders) * 100
}
