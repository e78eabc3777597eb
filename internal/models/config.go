package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type SourceConfig struct {
	Kind    string        `mapstructure:"kind"` // "file", "http", "s3"
	Path    string        `mapstructure:"path"`
	URL     string        `mapstructure:"url"`
	Bucket  string        `mapstructure:"bucket"`
	Key     string        `mapstructure:"key"`
	Region  string        `mapstructure:"region"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether the source points anywhere.
func (s SourceConfig) Enabled() bool {
	return s.Path != "" || s.URL != "" || s.Key != ""
}

type SourcesConfig struct {
	Delivery  SourceConfig `mapstructure:"delivery"`
	Cuisine   SourceConfig `mapstructure:"cuisine"`
	MenuItems SourceConfig `mapstructure:"menu_items"`
}

type SimulationConfig struct {
	BatchSize       int           `mapstructure:"batch_size"`
	UpdateRate      time.Duration `mapstructure:"update_rate"`
	BatchEvery      int           `mapstructure:"batch_every"` // order ticks per batch tick
	SpeedMultiplier float64       `mapstructure:"speed_multiplier"`
	AutoStart       bool          `mapstructure:"auto_start"`
	SplitDate       time.Time     `mapstructure:"split_date"`
}

type SmoothingConfig struct {
	ZoneBreachWeight float64 `mapstructure:"zone_breach_weight"`
	TrendWeight      float64 `mapstructure:"trend_weight"`
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

type OutputConfig struct {
	Destination  string             `mapstructure:"destination"` // console, json, csv, parquet, kafka, redis, postgres, none
	Path         string             `mapstructure:"path"`
	Folder       string             `mapstructure:"folder"`
	CloudStorage CloudStorageConfig `mapstructure:"cloud_storage"`
}

type KafkaConfig struct {
	BrokerList       string `mapstructure:"broker_list"`
	TopicPrefix      string `mapstructure:"topic_prefix"`
	SessionTimeoutMs int    `mapstructure:"session_timeout_ms"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type ServerConfig struct {
	Enabled        bool     `mapstructure:"enabled"`
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	Seed       int64            `mapstructure:"seed"`
	Sources    SourcesConfig    `mapstructure:"sources"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Smoothing  SmoothingConfig  `mapstructure:"smoothing"`
	Output     OutputConfig     `mapstructure:"output"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("seed", 42)
	v.SetDefault("sources.delivery.kind", "file")
	v.SetDefault("sources.delivery.path", "data/kpi/kpi_delivery_daily.csv")
	v.SetDefault("sources.delivery.timeout", 10*time.Second)
	v.SetDefault("sources.cuisine.kind", "file")
	v.SetDefault("sources.menu_items.kind", "file")
	v.SetDefault("simulation.batch_size", 5)
	v.SetDefault("simulation.update_rate", 2*time.Second)
	v.SetDefault("simulation.batch_every", 5)
	v.SetDefault("simulation.speed_multiplier", 1.0)
	v.SetDefault("simulation.auto_start", true)
	v.SetDefault("smoothing.zone_breach_weight", 0.8)
	v.SetDefault("smoothing.trend_weight", 0.7)
	v.SetDefault("output.destination", "console")
	v.SetDefault("output.folder", "summaries")
	v.SetDefault("kafka.broker_list", "localhost:9092")
	v.SetDefault("kafka.topic_prefix", "slawatch")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key_prefix", "slawatch")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig initializes and reads the configuration using Viper. An empty
// cfgFile means "look for slawatch.yaml in . and ./config, fall back to defaults".
func LoadConfig(cfgFile string) (*Config, error) {
	return LoadConfigWith(viper.GetViper(), cfgFile)
}

// LoadConfigWith is LoadConfig against an explicit viper instance.
func LoadConfigWith(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("config")
		v.SetConfigName("slawatch")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("slawatch")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// an explicit file must exist; the default lookup may come up empty
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToTimeHookFunc(DateLayout),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the values the engine cannot run without.
func (cfg *Config) Validate() error {
	if cfg.Simulation.BatchSize <= 0 {
		return fmt.Errorf("simulation.batch_size must be positive, got %d", cfg.Simulation.BatchSize)
	}
	if cfg.Simulation.UpdateRate <= 0 {
		return fmt.Errorf("simulation.update_rate must be positive, got %s", cfg.Simulation.UpdateRate)
	}
	if cfg.Simulation.BatchEvery <= 0 {
		return fmt.Errorf("simulation.batch_every must be positive, got %d", cfg.Simulation.BatchEvery)
	}
	if cfg.Simulation.SpeedMultiplier <= 0 {
		return fmt.Errorf("simulation.speed_multiplier must be positive, got %g", cfg.Simulation.SpeedMultiplier)
	}
	for name, w := range map[string]float64{
		"smoothing.zone_breach_weight": cfg.Smoothing.ZoneBreachWeight,
		"smoothing.trend_weight":       cfg.Smoothing.TrendWeight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be within [0,1], got %g", name, w)
		}
	}
	return nil
}
