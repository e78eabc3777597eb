package output

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/metrics"
	"github.com/chrisdamba/slawatch/internal/models"
)

// Subscriber is satisfied by *stream.Bus.
type Subscriber interface {
	SubscribeAll(ctx context.Context) (<-chan models.SummaryUpdate, error)
}

// Forwarder copies every published summary update to a destination.
type Forwarder struct {
	sub     Subscriber
	dest    Destination
	name    string
	log     zerolog.Logger
	updates <-chan models.SummaryUpdate
}

// NewForwarder labels metrics with name, normally the destination kind.
func NewForwarder(sub Subscriber, dest Destination, name string) *Forwarder {
	return &Forwarder{
		sub:  sub,
		dest: dest,
		name: name,
		log:  logging.With("forwarder").With().Str("destination", name).Logger(),
	}
}

// TopicFor is the sink topic for a chart.
func TopicFor(chart string) string {
	return "summary_" + chart
}

// Subscribe attaches to the feed ahead of Serve so updates published in
// between are not lost. The subscription lives as long as ctx.
func (f *Forwarder) Subscribe(ctx context.Context) error {
	updates, err := f.sub.SubscribeAll(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	f.updates = updates
	return nil
}

// Serve forwards until ctx is cancelled or the subscription closes. Write
// failures are logged and counted but never stop the loop.
func (f *Forwarder) Serve(ctx context.Context) error {
	if f.updates == nil {
		if err := f.Subscribe(ctx); err != nil {
			return err
		}
	}
	updates := f.updates
	defer func() { f.updates = nil }()
	f.log.Info().Msg("Forwarding summary updates")

	for update := range updates {
		f.forward(update)
	}
	return ctx.Err()
}

func (f *Forwarder) forward(update models.SummaryUpdate) {
	if err := f.Publish(update); err != nil {
		f.log.Error().Err(err).Str("chart", update.Chart).Msg("Failed to forward update")
	}
}

// Publish writes update straight to the destination. It lets a dashboard use
// the forwarder as its publisher when no bus is involved.
func (f *Forwarder) Publish(update models.SummaryUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		metrics.SinkWrites.WithLabelValues(f.name, "error").Inc()
		return fmt.Errorf("encode update: %w", err)
	}
	if err := f.dest.WriteMessage(TopicFor(update.Chart), payload); err != nil {
		metrics.SinkWrites.WithLabelValues(f.name, "error").Inc()
		return err
	}
	metrics.SinkWrites.WithLabelValues(f.name, "ok").Inc()
	return nil
}

func (f *Forwarder) String() string {
	return "forwarder-" + f.name
}
