package factories

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jaswdr/faker"
	"github.com/lucsky/cuid"

	"github.com/chrisdamba/slawatch/internal/models"
)

var (
	orderCuisines = []string{"Italian", "Japanese", "Mexican", "Vegan", "Burgers"}
	orderStatuses = []string{models.OrderStatusPreparing, models.OrderStatusInTransit, models.OrderStatusDelivered}
)

// OrderFactory creates synthetic single orders. It is safe for concurrent use.
type OrderFactory struct {
	mu   sync.Mutex
	fake faker.Faker
	rng  *rand.Rand
	now  func() time.Time
}

func NewOrderFactory(seed int64) *OrderFactory {
	return &OrderFactory{
		fake: faker.NewWithSeed(rand.NewSource(seed)),
		rng:  rand.New(rand.NewSource(seed + 1)),
		now:  time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (of *OrderFactory) WithClock(now func() time.Time) *OrderFactory {
	of.mu.Lock()
	defer of.mu.Unlock()
	of.now = now
	return of
}

// CreateOrder builds an order for zone. With probability baselineBreach the
// delivery time lands in [45,55), otherwise in [30,45).
func (of *OrderFactory) CreateOrder(zone string, baselineBreach float64) models.OrderEvent {
	of.mu.Lock()
	defer of.mu.Unlock()

	var minutes int
	if of.rng.Float64() < baselineBreach {
		minutes = int(math.Floor(45 + of.rng.Float64()*10))
	} else {
		minutes = int(math.Floor(30 + of.rng.Float64()*15))
	}

	ts := of.now().Add(-time.Duration(of.fake.IntBetween(0, 9)) * time.Minute)

	return models.OrderEvent{
		OrderID:         "ORD-" + cuid.New(),
		CuisineType:     of.fake.RandomStringElement(orderCuisines),
		Timestamp:       ts,
		Zone:            zone,
		TotalAmount:     of.fake.Float64(2, 15, 59),
		Status:          of.fake.RandomStringElement(orderStatuses),
		DeliveryMinutes: minutes,
		TimePeriod:      models.TimePeriodForHour(ts.Hour()),
	}
}
