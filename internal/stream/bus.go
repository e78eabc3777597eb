// Package stream carries summary updates from the dashboard to its consumers
// over an in-process pub/sub, one topic per dimension.
package stream

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/lucsky/cuid"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/metrics"
	"github.com/chrisdamba/slawatch/internal/models"
)

const topicPrefix = "summaries."

// Dimensions lists every dimension with a topic.
var Dimensions = []models.Dimension{
	models.DimensionZone,
	models.DimensionWeather,
	models.DimensionTimeOfDay,
	models.DimensionDate,
}

// Topic is the topic name for dim.
func Topic(dim models.Dimension) string {
	return topicPrefix + string(dim)
}

// Bus is the summary-update stream.
type Bus struct {
	pubsub    *gochannel.GoChannel
	subscribe func(ctx context.Context, topic string) (<-chan *message.Message, error)
}

func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = logging.NewWatermillAdapter(logging.With("stream"))
	}
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &Bus{pubsub: pubsub, subscribe: pubsub.Subscribe}
}

// Publish sends update to its dimension's topic. Updates without an ID get one.
func (b *Bus) Publish(update models.SummaryUpdate) error {
	if update.ID == "" {
		update.ID = cuid.New()
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode summary update: %w", err)
	}

	msg := message.NewMessage(update.ID, payload)
	msg.Metadata.Set("chart", update.Chart)

	if err := b.pubsub.Publish(Topic(update.Dimension), msg); err != nil {
		return fmt.Errorf("failed to publish summary update: %w", err)
	}
	metrics.UpdatesPublished.WithLabelValues(string(update.Dimension)).Inc()
	return nil
}

// Subscribe streams decoded updates for dim until ctx is done or the bus closes.
func (b *Bus) Subscribe(ctx context.Context, dim models.Dimension) (<-chan models.SummaryUpdate, error) {
	msgs, err := b.subscribe(ctx, Topic(dim))
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", Topic(dim), err)
	}
	out := make(chan models.SummaryUpdate)
	go func() {
		defer close(out)
		pump(ctx, msgs, out)
	}()
	return out, nil
}

// SubscribeAll merges the topics of every dimension into one channel. If any
// topic fails to subscribe, the ones already attached are released.
func (b *Bus) SubscribeAll(ctx context.Context) (<-chan models.SummaryUpdate, error) {
	ctx, cancel := context.WithCancel(ctx)
	out := make(chan models.SummaryUpdate)
	var wg sync.WaitGroup
	for _, dim := range Dimensions {
		msgs, err := b.subscribe(ctx, Topic(dim))
		if err != nil {
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("failed to subscribe to %s: %w", Topic(dim), err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			pump(ctx, msgs, out)
		}()
	}
	go func() {
		wg.Wait()
		cancel()
		close(out)
	}()
	return out, nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

func pump(ctx context.Context, msgs <-chan *message.Message, out chan<- models.SummaryUpdate) {
	for msg := range msgs {
		var update models.SummaryUpdate
		if err := json.Unmarshal(msg.Payload, &update); err != nil {
			logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable summary update")
			msg.Ack()
			continue
		}
		msg.Ack()

		select {
		case out <- update:
		case <-ctx.Done():
			// drain so the pubsub can close the subscription
			for m := range msgs {
				m.Ack()
			}
			return
		}
	}
}
