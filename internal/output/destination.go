// Package output writes summary updates to external sinks.
package output

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-json"

	"github.com/chrisdamba/slawatch/internal/cloudwriter"
	"github.com/chrisdamba/slawatch/internal/models"
	"github.com/chrisdamba/slawatch/internal/repositories/postgres"
)

// Destination is a sink for encoded summary updates.
type Destination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// New builds the destination named by cfg.Output.Destination.
func New(ctx context.Context, cfg *models.Config) (Destination, error) {
	out := cfg.Output
	switch out.Destination {
	case "", "console":
		return NewConsoleOutput(os.Stdout), nil
	case "none":
		return Discard{}, nil
	case "json":
		return NewJSONOutput(out.Path, out.Folder), nil
	case "csv":
		return NewCSVOutput(out.Path, out.Folder), nil
	case "parquet":
		var factory cloudwriter.CloudWriterFactory
		if out.CloudStorage.Provider != "" {
			if out.CloudStorage.Provider != "s3" {
				return nil, fmt.Errorf("unsupported cloud storage provider: %s", out.CloudStorage.Provider)
			}
			f, err := cloudwriter.NewS3WriterFactory(ctx, out.CloudStorage.Region)
			if err != nil {
				return nil, fmt.Errorf("failed to create cloud writer factory: %w", err)
			}
			factory = f
		}
		return NewParquetOutput(ctx, out.Path, out.Folder, factory, out.CloudStorage.BucketName), nil
	case "kafka":
		return NewKafkaOutput(cfg.Kafka)
	case "redis":
		return NewRedisOutput(ctx, cfg.Redis)
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		return NewPostgresOutput(ctx, postgres.NewSnapshotRepository(pool), pool.Close)
	default:
		return nil, fmt.Errorf("unsupported output destination: %s", out.Destination)
	}
}

// Discard drops every message.
type Discard struct{}

func (Discard) WriteMessage(string, []byte) error { return nil }
func (Discard) Close() error                      { return nil }

func decodeUpdate(msg []byte) (models.SummaryUpdate, error) {
	var update models.SummaryUpdate
	if err := json.Unmarshal(msg, &update); err != nil {
		return update, fmt.Errorf("invalid summary update: %w", err)
	}
	return update, nil
}

// partitionPath lays files out by the hour the update was published.
func partitionPath(t time.Time) string {
	t = t.UTC()
	year, month, day := t.Date()
	return fmt.Sprintf("year=%d/month=%02d/day=%02d/hour=%02d", year, month, day, t.Hour())
}
