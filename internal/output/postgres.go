package output

import (
	"context"
	"fmt"

	"github.com/chrisdamba/slawatch/internal/repositories"
)

// PostgresOutput stores every update as flattened snapshot rows.
type PostgresOutput struct {
	ctx     context.Context
	repo    repositories.SnapshotRepository
	release func()
}

// NewPostgresOutput ensures the snapshot schema exists. release, if set, is
// called on Close to give back the underlying connection pool.
func NewPostgresOutput(ctx context.Context, repo repositories.SnapshotRepository, release func()) (*PostgresOutput, error) {
	if err := repo.EnsureSchema(ctx); err != nil {
		if release != nil {
			release()
		}
		return nil, fmt.Errorf("error creating snapshot schema: %w", err)
	}
	return &PostgresOutput{ctx: ctx, repo: repo, release: release}, nil
}

func (p *PostgresOutput) WriteMessage(_ string, msg []byte) error {
	update, err := decodeUpdate(msg)
	if err != nil {
		return err
	}
	rows := update.Rows()
	if len(rows) == 0 {
		return nil
	}
	if err := p.repo.BulkCreate(p.ctx, rows); err != nil {
		return fmt.Errorf("error inserting %d snapshot rows for %s: %w", len(rows), update.Chart, err)
	}
	return nil
}

func (p *PostgresOutput) Close() error {
	if p.release != nil {
		p.release()
		p.release = nil
	}
	return nil
}
