package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/chrisdamba/slawatch/internal/dashboard"
	"github.com/chrisdamba/slawatch/internal/factories"
	"github.com/chrisdamba/slawatch/internal/ingest"
	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/output"
	"github.com/chrisdamba/slawatch/internal/simulator"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay the held-back pool through the charts once, as fast as possible",
	Long: `replay loads the initial window, then feeds every pooled record through the
incremental merge in batches, writing each update to the configured output.
The final chart states are printed as JSON.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		loader, err := ingest.NewLoaderFromConfig(ctx, cfg.Sources, cfg.Simulation.SplitDate)
		if err != nil {
			return err
		}
		data := loader.Load(ctx)
		if len(data.Pool) == 0 {
			return fmt.Errorf("nothing to replay: %w", ingest.ErrEmptyPool)
		}

		dest, err := output.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("output: %w", err)
		}
		defer func() {
			if err := dest.Close(); err != nil {
				logging.Error().Err(err).Msg("Failed to close output")
			}
		}()

		dash := dashboard.New(dashboard.DefaultCharts(cfg.Smoothing), output.NewForwarder(nil, dest, cfg.Output.Destination))
		if err := dash.Load(data.Initial, data.Cuisine, data.MenuItems, ingest.FallbackRecords()); err != nil {
			logging.Warn().Err(err).Msg("Some initial summaries were not written")
		}

		state := simulator.NewState(data.Pool, data.SplitDate, cfg.Simulation.BatchSize)
		feed := simulator.NewFeed(state, factories.NewOrderFactory(cfg.Seed), cfg.Seed)

		bar := progressbar.NewOptions(state.PoolSize(),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("replaying pool"),
			progressbar.OptionShowCount(),
		)
		for replayed := 0; replayed < state.PoolSize(); {
			batch := feed.NextBatch()
			if err := dash.Apply(ctx, batch); err != nil {
				logging.Warn().Err(err).Msg("Batch not fully written")
			}
			replayed += len(batch)
			_ = bar.Add(len(batch))
		}
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(dash.Charts())
	},
}
