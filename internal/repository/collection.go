package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CollectionNamePrefix prefixes every per-domain collection name.
const CollectionNamePrefix = "knowledge_"

// CollectionName returns the collection name for a domain. Callers normalize
// the domain string before calling; no normalization happens here.
func CollectionName(domainName string) string {
	return CollectionNamePrefix + domainName
}

// CollectionRepository routes domains to their index collections.
type CollectionRepository struct {
	db dbtx
}

func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{db: pool}
}

func NewCollectionRepositoryWithTx(tx dbtx) *CollectionRepository {
	return &CollectionRepository{db: tx}
}

// GetOrCreate resolves the collection for a domain, creating it on first use.
func (r *CollectionRepository) GetOrCreate(ctx context.Context, domainName string) (*domain.Collection, error) {
	c, err := r.Get(ctx, domainName)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, domain.ErrCollectionNotFound) {
		return nil, err
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO collections (name, domain, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (name) DO NOTHING`,
		CollectionName(domainName), domainName, time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, domainName)
}

// Get fetches the collection for a domain, or domain.ErrCollectionNotFound.
func (r *CollectionRepository) Get(ctx context.Context, domainName string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.QueryRow(ctx,
		`SELECT name, domain, created_at FROM collections WHERE name = $1`,
		CollectionName(domainName),
	).Scan(&c.Name, &c.Domain, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, err
	}
	return &c, nil
}

// List returns all known collections, oldest first.
func (r *CollectionRepository) List(ctx context.Context) ([]*domain.Collection, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, domain, created_at FROM collections ORDER BY created_at, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Collection
	for rows.Next() {
		var c domain.Collection
		if err := rows.Scan(&c.Name, &c.Domain, &c.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}
