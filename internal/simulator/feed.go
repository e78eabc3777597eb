package simulator

import (
	"math/rand"
	"sync"

	"github.com/chrisdamba/slawatch/internal/factories"
	"github.com/chrisdamba/slawatch/internal/models"
)

// baseline used for synthetic orders while the pool is empty
const (
	defaultZone           = "Z1"
	defaultBreachFraction = 0.48
)

// Feed produces replay batches and synthetic orders from a State.
type Feed struct {
	state  *State
	orders *factories.OrderFactory

	mu  sync.Mutex
	rng *rand.Rand
}

func NewFeed(state *State, orders *factories.OrderFactory, seed int64) *Feed {
	return &Feed{
		state:  state,
		orders: orders,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (f *Feed) State() *State {
	return f.state
}

// NextBatch returns up to BatchSize pool records. Replay is cyclic: after
// ceil(pool/BatchSize) calls it starts over. An empty pool yields nil.
func (f *Feed) NextBatch() []models.RawOrderRecord {
	return f.state.next()
}

// GenerateSingleOrder synthesizes one order, biased towards the breach
// tendency of a randomly chosen pool record.
func (f *Feed) GenerateSingleOrder() models.OrderEvent {
	f.mu.Lock()
	rec, ok := f.state.random(f.rng)
	f.mu.Unlock()

	zone, baseline := defaultZone, defaultBreachFraction
	if ok {
		zone, baseline = rec.Zone, rec.SLABreachFraction
	}
	return f.orders.CreateOrder(zone, baseline)
}
