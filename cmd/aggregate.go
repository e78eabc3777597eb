package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/chrisdamba/slawatch/internal/aggregate"
	"github.com/chrisdamba/slawatch/internal/dashboard"
	"github.com/chrisdamba/slawatch/internal/ingest"
	"github.com/chrisdamba/slawatch/internal/models"
)

var aggregateChart string

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Aggregate the full datasets once and print every chart as JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		loader, err := ingest.NewLoaderFromConfig(ctx, cfg.Sources, cfg.Simulation.SplitDate)
		if err != nil {
			return err
		}
		data := loader.Load(ctx)
		delivery := append(append([]models.RawOrderRecord{}, data.Initial...), data.Pool...)

		type chartOut struct {
			ID      string         `json:"id"`
			Title   string         `json:"title"`
			Summary models.Summary `json:"summary"`
		}
		out := struct {
			Advisory string                      `json:"advisory,omitempty"`
			Charts   []chartOut                  `json:"charts"`
			Cuisines []models.CuisinePerformance `json:"cuisines"`
			Menu     []models.MenuCategorySales  `json:"menu_categories"`
		}{
			Advisory: data.Advisory,
			Cuisines: aggregate.Cuisine(data.Cuisine),
			Menu:     aggregate.MenuCategories(data.MenuItems),
		}

		for _, spec := range dashboard.DefaultCharts(cfg.Smoothing) {
			if aggregateChart != "" && spec.ID != aggregateChart {
				continue
			}
			records := delivery
			if spec.Dataset == dashboard.DatasetCuisine {
				records = data.Cuisine
			}
			out.Charts = append(out.Charts, chartOut{ID: spec.ID, Title: spec.Title, Summary: aggregate.Aggregate(spec.View, records)})
		}
		if aggregateChart != "" && len(out.Charts) == 0 {
			return fmt.Errorf("%w: %s", dashboard.ErrUnknownChart, aggregateChart)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	aggregateCmd.Flags().StringVar(&aggregateChart, "chart", "", "Only print this chart id")
}
