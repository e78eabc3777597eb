package simulator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/metrics"
	"github.com/chrisdamba/slawatch/internal/models"
)

var ErrInvalidSpeed = errors.New("speed must be one of 0.5, 1 or 2")

// BatchApplier receives replayed batches, normally the dashboard.
type BatchApplier interface {
	Apply(ctx context.Context, batch []models.RawOrderRecord) error
}

// PoolLoader re-derives the simulation pool after it came up empty.
type PoolLoader interface {
	LoadPool(ctx context.Context) ([]models.RawOrderRecord, error)
}

// OrderHandler is told about every synthetic order.
type OrderHandler func(models.OrderEvent)

// Simulator drives the feed with two independent tickers, one generating
// single orders and one replaying batches into the applier.
type Simulator struct {
	cfg     models.SimulationConfig
	feed    *Feed
	stats   *StatsTracker
	applier BatchApplier
	loader  PoolLoader
	onOrder OrderHandler

	mu      sync.Mutex
	speed   float64
	running bool
	cancel  context.CancelFunc
	done    <-chan error
}

func NewSimulator(cfg models.SimulationConfig, feed *Feed, applier BatchApplier, loader PoolLoader) *Simulator {
	speed := cfg.SpeedMultiplier
	if !validSpeed(speed) {
		speed = 1
	}
	return &Simulator{
		cfg:     cfg,
		feed:    feed,
		stats:   NewStatsTracker(),
		applier: applier,
		loader:  loader,
		speed:   speed,
	}
}

// OnOrder registers h for generated orders. Call before Start.
func (s *Simulator) OnOrder(h OrderHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOrder = h
}

// Start launches the tickers under a supervisor. Starting a running simulator
// is a no-op.
func (s *Simulator) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	sup := suture.New("simulator", suture.Spec{
		EventHook: func(e suture.Event) {
			logging.Warn().Str("event", e.String()).Msg("simulator supervisor event")
		},
		Timeout: 5 * time.Second,
	})
	sup.Add(&orderTicker{sim: s})
	sup.Add(&batchTicker{sim: s})

	s.done = sup.ServeBackground(runCtx)
	s.cancel = cancel
	s.running = true
	metrics.SimulationRunning.Set(1)

	logging.Info().Float64("speed", s.speed).Dur("order_interval", s.orderInterval()).Dur("batch_interval", s.batchInterval()).Msg("simulation started")
	return nil
}

// Stop cancels the tickers and waits for them to exit. A batch that was
// already pulled is still applied.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logging.Warn().Err(err).Msg("simulator supervisor exited with error")
	}
	metrics.SimulationRunning.Set(0)
	logging.Info().Msg("simulation stopped")
}

// Toggle flips between running and stopped and reports the new state.
func (s *Simulator) Toggle(ctx context.Context) (bool, error) {
	if s.Running() {
		s.Stop()
		return false, nil
	}
	if err := s.Start(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetSpeed changes the tick rate. Running tickers pick it up on their next tick.
func (s *Simulator) SetSpeed(x float64) error {
	if !validSpeed(x) {
		return fmt.Errorf("%w: got %s", ErrInvalidSpeed, strconv.FormatFloat(x, 'g', -1, 64))
	}
	s.mu.Lock()
	s.speed = x
	s.mu.Unlock()
	logging.Info().Float64("speed", x).Msg("simulation speed changed")
	return nil
}

func (s *Simulator) Speed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

func (s *Simulator) Stats() models.LiveStats {
	return s.stats.Snapshot()
}

func (s *Simulator) Feed() *Feed {
	return s.feed
}

func validSpeed(x float64) bool {
	return x == 0.5 || x == 1 || x == 2
}

func (s *Simulator) orderInterval() time.Duration {
	return time.Duration(float64(s.cfg.UpdateRate) / s.speed)
}

func (s *Simulator) batchInterval() time.Duration {
	every := s.cfg.BatchEvery
	if every <= 0 {
		every = 1
	}
	return time.Duration(float64(s.cfg.UpdateRate) * float64(every) / s.speed)
}

func (s *Simulator) currentInterval(batch bool) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch {
		return s.batchInterval()
	}
	return s.orderInterval()
}

func (s *Simulator) generateOrder() {
	order := s.feed.GenerateSingleOrder()
	s.stats.RecordOrder(order)
	metrics.SimulatedOrders.WithLabelValues(order.Zone, strconv.FormatBool(order.Breached())).Inc()

	s.mu.Lock()
	h := s.onOrder
	s.mu.Unlock()
	if h != nil {
		h(order)
	}
}

// replayBatch pulls the next batch and applies it. An empty pool triggers a
// reload through the loader first.
func (s *Simulator) replayBatch(ctx context.Context) {
	batch := s.feed.NextBatch()
	if len(batch) == 0 && s.loader != nil {
		pool, err := s.loader.LoadPool(ctx)
		if err != nil {
			logging.Warn().Err(err).Msg("simulation pool still empty")
			return
		}
		s.feed.State().Refill(pool)
		batch = s.feed.NextBatch()
	}
	if len(batch) == 0 {
		return
	}

	// the batch is ours now; apply it even if Stop lands meanwhile
	if err := s.applier.Apply(context.WithoutCancel(ctx), batch); err != nil {
		logging.Error().Err(err).Int("records", len(batch)).Msg("failed to apply batch")
		return
	}
	s.stats.RecordBatch(batch)
}

type orderTicker struct {
	sim *Simulator
}

func (t *orderTicker) String() string { return "order-ticker" }

func (t *orderTicker) Serve(ctx context.Context) error {
	return tick(ctx, func() time.Duration { return t.sim.currentInterval(false) }, func(context.Context) {
		t.sim.generateOrder()
	})
}

type batchTicker struct {
	sim *Simulator
}

func (t *batchTicker) String() string { return "batch-ticker" }

func (t *batchTicker) Serve(ctx context.Context) error {
	return tick(ctx, func() time.Duration { return t.sim.currentInterval(true) }, t.sim.replayBatch)
}

func tick(ctx context.Context, interval func() time.Duration, fn func(context.Context)) error {
	for {
		timer := time.NewTimer(interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			fn(ctx)
		}
	}
}
