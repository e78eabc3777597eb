package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/thejerf/suture/v4"

	"github.com/chrisdamba/slawatch/internal/dashboard"
	"github.com/chrisdamba/slawatch/internal/factories"
	"github.com/chrisdamba/slawatch/internal/ingest"
	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
	"github.com/chrisdamba/slawatch/internal/output"
	"github.com/chrisdamba/slawatch/internal/server"
	"github.com/chrisdamba/slawatch/internal/simulator"
	"github.com/chrisdamba/slawatch/internal/stream"
)

// poolLoader refreshes the dashboard advisory whenever the pool is reloaded.
type poolLoader struct {
	loader *ingest.Loader
	dash   *dashboard.Dashboard
}

func (p poolLoader) LoadPool(ctx context.Context) ([]models.RawOrderRecord, error) {
	pool, err := p.loader.LoadPool(ctx)
	if err == nil {
		p.dash.SetAdvisory(p.loader.Advisory())
	}
	return pool, err
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	loader, err := ingest.NewLoaderFromConfig(ctx, cfg.Sources, cfg.Simulation.SplitDate)
	if err != nil {
		return err
	}
	data := loader.Load(ctx)

	bus := stream.NewBus(nil)
	defer bus.Close()

	dest, err := output.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	defer func() {
		if err := dest.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close output")
		}
	}()

	forwarder := output.NewForwarder(bus, dest, cfg.Output.Destination)
	if err := forwarder.Subscribe(ctx); err != nil {
		return err
	}

	dash := dashboard.New(dashboard.DefaultCharts(cfg.Smoothing), bus)
	if err := dash.Load(data.Initial, data.Cuisine, data.MenuItems, ingest.FallbackRecords()); err != nil {
		logging.Warn().Err(err).Msg("Some initial summaries were not published")
	}
	dash.SetAdvisory(data.Advisory)

	feed := simulator.NewFeed(
		simulator.NewState(data.Pool, data.SplitDate, cfg.Simulation.BatchSize),
		factories.NewOrderFactory(cfg.Seed),
		cfg.Seed,
	)
	sim := simulator.NewSimulator(cfg.Simulation, feed, dash, poolLoader{loader: loader, dash: dash})
	sim.OnOrder(func(o models.OrderEvent) {
		logging.Trace().Str("order", o.OrderID).Str("zone", o.Zone).Int("minutes", o.DeliveryMinutes).Msg("order")
	})

	tree := suture.New("slawatch", suture.Spec{
		EventHook: func(e suture.Event) {
			logging.Warn().Str("event", e.String()).Msg("Supervisor event")
		},
		Timeout: 10 * time.Second,
	})
	tree.Add(forwarder)
	if cfg.Server.Enabled {
		tree.Add(server.New(ctx, cfg.Server, dash, sim, bus))
	}

	if cfg.Simulation.AutoStart {
		if err := sim.Start(ctx); err != nil {
			return err
		}
	}
	defer sim.Stop()

	logging.Info().
		Int("charts", len(dash.Charts())).
		Int("pool", feed.State().PoolSize()).
		Str("output", cfg.Output.Destination).
		Bool("server", cfg.Server.Enabled).
		Msg("slawatch running")

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		err = <-errCh
	case err = <-errCh:
		cancel()
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}
	logging.Info().Msg("slawatch stopped")
	return nil
}
