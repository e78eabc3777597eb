package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chrisdamba/slawatch/internal/models"
)

const createSnapshotsTable = `
    CREATE TABLE IF NOT EXISTS summary_snapshots (
        update_id            TEXT             NOT NULL,
        chart                TEXT             NOT NULL,
        dimension            TEXT             NOT NULL,
        position             INTEGER          NOT NULL,
        key                  TEXT             NOT NULL,
        total_orders         BIGINT           NOT NULL,
        avg_delivery_minutes DOUBLE PRECISION NOT NULL,
        breach_percent       DOUBLE PRECISION NOT NULL,
        avg_delay_beyond_sla DOUBLE PRECISION NOT NULL,
        min                  DOUBLE PRECISION NOT NULL,
        q1                   DOUBLE PRECISION NOT NULL,
        median               DOUBLE PRECISION NOT NULL,
        q3                   DOUBLE PRECISION NOT NULL,
        max                  DOUBLE PRECISION NOT NULL,
        published_at         BIGINT           NOT NULL,
        PRIMARY KEY (update_id, position)
    )`

const createSnapshotsIndex = `
    CREATE INDEX IF NOT EXISTS summary_snapshots_chart_idx ON summary_snapshots (chart, published_at DESC)`

type SnapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Connect opens a pool for url.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	return pool, nil
}

func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range []string{createSnapshotsTable, createSnapshotsIndex} {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create snapshot schema: %w", err)
		}
	}
	return nil
}

func (r *SnapshotRepository) BulkCreate(ctx context.Context, rows []models.SnapshotRow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stmt := `
        INSERT INTO summary_snapshots (
            update_id, chart, dimension, position, key, total_orders,
            avg_delivery_minutes, breach_percent, avg_delay_beyond_sla,
            min, q1, median, q3, max, published_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
        )
        ON CONFLICT (update_id, position) DO NOTHING`

	for _, row := range rows {
		_, err = tx.Exec(ctx, stmt,
			row.UpdateID,
			row.Chart,
			row.Dimension,
			row.Position,
			row.Key,
			row.TotalOrders,
			row.AvgDeliveryMinutes,
			row.BreachPercent,
			row.AvgDelayBeyondSLA,
			row.Min,
			row.Q1,
			row.Median,
			row.Q3,
			row.Max,
			row.PublishedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// LatestByChart returns the rows of the most recent update for chart, in
// display order.
func (r *SnapshotRepository) LatestByChart(ctx context.Context, chart string) ([]models.SnapshotRow, error) {
	query := `
        SELECT update_id, chart, dimension, position, key, total_orders,
               avg_delivery_minutes, breach_percent, avg_delay_beyond_sla,
               min, q1, median, q3, max, published_at
        FROM summary_snapshots
        WHERE update_id = (
            SELECT update_id FROM summary_snapshots
            WHERE chart = $1
            ORDER BY published_at DESC
            LIMIT 1
        )
        ORDER BY position`

	rows, err := r.pool.Query(ctx, query, chart)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SnapshotRow
	for rows.Next() {
		var row models.SnapshotRow
		err := rows.Scan(
			&row.UpdateID,
			&row.Chart,
			&row.Dimension,
			&row.Position,
			&row.Key,
			&row.TotalOrders,
			&row.AvgDeliveryMinutes,
			&row.BreachPercent,
			&row.AvgDelayBeyondSLA,
			&row.Min,
			&row.Q1,
			&row.Median,
			&row.Q3,
			&row.Max,
			&row.PublishedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SnapshotRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM summary_snapshots").Scan(&count)
	return count, err
}

func (r *SnapshotRepository) DeleteAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM summary_snapshots")
	return err
}
