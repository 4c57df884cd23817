package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatusRepository persists per-domain bootstrap status rows.
type StatusRepository struct {
	db dbtx
}

func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{db: pool}
}

func NewStatusRepositoryWithTx(tx dbtx) *StatusRepository {
	return &StatusRepository{db: tx}
}

// Get fetches the status row for a domain. Returns nil without error when
// no row exists.
func (r *StatusRepository) Get(ctx context.Context, domainName string) (*domain.InitStatus, error) {
	var s domain.InitStatus
	err := r.db.QueryRow(ctx,
		`SELECT domain, version, initialized_at, item_count, chunk_count, last_check
		 FROM init_status WHERE domain = $1`,
		domainName,
	).Scan(&s.Domain, &s.Version, &s.InitializedAt, &s.ItemCount, &s.ChunkCount, &s.LastCheck)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// Put writes or replaces the status row for a domain.
func (r *StatusRepository) Put(ctx context.Context, status domain.InitStatus) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO init_status (domain, version, initialized_at, item_count, chunk_count, last_check)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (domain) DO UPDATE SET
			version = EXCLUDED.version,
			initialized_at = EXCLUDED.initialized_at,
			item_count = EXCLUDED.item_count,
			chunk_count = EXCLUDED.chunk_count,
			last_check = EXCLUDED.last_check`,
		status.Domain, status.Version, status.InitializedAt,
		status.ItemCount, status.ChunkCount, status.LastCheck,
	)
	return err
}

// Touch updates only the last_check timestamp of an existing row.
func (r *StatusRepository) Touch(ctx context.Context, domainName string, lastCheck time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE init_status SET last_check = $2 WHERE domain = $1`,
		domainName, lastCheck,
	)
	return err
}

// Delete removes the status row for a domain.
func (r *StatusRepository) Delete(ctx context.Context, domainName string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM init_status WHERE domain = $1`, domainName)
	return err
}
