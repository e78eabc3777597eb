package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chrisdamba/slawatch/internal/logging"
	"github.com/chrisdamba/slawatch/internal/models"
)

var (
	cfgFile string
	cfg     *models.Config
)

var rootCmd = &cobra.Command{
	Use:   "slawatch",
	Short: "Live SLA breach dashboard for food delivery operations",
	Long: `slawatch aggregates daily delivery KPIs into per-zone, weather, time-of-day and trend
summaries, then keeps them moving by replaying held-back records and generating
synthetic orders. Summaries are served over HTTP/WebSocket and forwarded to a sink.`,
	SilenceUsage: true,
	RunE:         runDashboard,
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./slawatch.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "Log format (console or json)")
	rootCmd.PersistentFlags().String("delivery", "", "Delivery KPI CSV path")
	rootCmd.PersistentFlags().Int64("seed", 42, "Random seed for the simulation feed")

	rootCmd.PersistentFlags().String("output", "console", "Output destination (console, json, csv, parquet, kafka, redis, postgres, none)")
	rootCmd.PersistentFlags().String("output-path", "", "Base path for file outputs")
	rootCmd.PersistentFlags().String("addr", ":8080", "HTTP listen address")
	rootCmd.PersistentFlags().Float64("speed", 1, "Simulation speed multiplier (0.5, 1 or 2)")
	rootCmd.PersistentFlags().Bool("auto-start", true, "Start the simulation immediately")

	bindFlag(rootCmd, "log.level", "log-level")
	bindFlag(rootCmd, "log.format", "log-format")
	bindFlag(rootCmd, "sources.delivery.path", "delivery")
	bindFlag(rootCmd, "seed", "seed")
	bindFlag(rootCmd, "output.destination", "output")
	bindFlag(rootCmd, "output.path", "output-path")
	bindFlag(rootCmd, "server.addr", "addr")
	bindFlag(rootCmd, "simulation.speed_multiplier", "speed")
	bindFlag(rootCmd, "simulation.auto_start", "auto-start")

	rootCmd.AddCommand(runCmd, aggregateCmd, replayCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load the datasets, serve the dashboard and run the simulation (default)",
	RunE:  runDashboard,
}

func initConfig() {
	c, err := models.LoadConfig(cfgFile)
	cobra.CheckErr(err)
	cfg = c

	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if used := viper.ConfigFileUsed(); used != "" {
		logging.Info().Str("file", used).Msg("Using config file")
	}
}

func bindFlag(cmd *cobra.Command, key, name string) {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		flag = cmd.PersistentFlags().Lookup(name)
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
