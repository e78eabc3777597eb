package repositories

import (
	"context"

	"github.com/chrisdamba/slawatch/internal/models"
)

type SnapshotRepository interface {
	EnsureSchema(ctx context.Context) error
	BulkCreate(ctx context.Context, rows []models.SnapshotRow) error
	LatestByChart(ctx context.Context, chart string) ([]models.SnapshotRow, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}
