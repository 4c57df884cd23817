package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence of embedded knowledge chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// Upsert writes one record per chunk into a collection, replacing records
// that already carry the same chunk id.
func (r *ChunkRepository) Upsert(ctx context.Context, collection string, records []domain.ChunkRecord) error {
	for _, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		createdAt := rec.Metadata.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err = r.db.Exec(ctx,
			`INSERT INTO chunks (id, collection_name, content, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata`,
			rec.ID,
			collection,
			rec.Content,
			pgvector.NewVector(rec.Embedding),
			meta,
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Get returns unranked chunks matching the filter. A limit of 0 means no
// limit.
func (r *ChunkRepository) Get(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.ChunkRecord, error) {
	query := `SELECT id, content, metadata FROM chunks WHERE collection_name = $1`
	args := []interface{}{collection}
	query, args = appendFilter(query, args, filter)
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ChunkRecord, 0)
	for rows.Next() {
		var rec domain.ChunkRecord
		var meta []byte
		if err := rows.Scan(&rec.ID, &rec.Content, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// Query runs a nearest-neighbor search over a collection and returns the k
// closest chunks with their native distances, closest first.
func (r *ChunkRepository) Query(ctx context.Context, collection string, embedding []float32, k int, filter domain.Filter) ([]domain.ChunkHit, error) {
	if k <= 0 {
		k = 5
	}

	query := `SELECT id, content, metadata, embedding <=> $2 AS distance
		 FROM chunks WHERE collection_name = $1`
	args := []interface{}{collection, pgvector.NewVector(embedding)}
	query, args = appendFilter(query, args, filter)
	args = append(args, k)
	query += fmt.Sprintf(" ORDER BY distance LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ChunkHit, 0)
	for rows.Next() {
		var hit domain.ChunkHit
		var meta []byte
		if err := rows.Scan(&hit.ID, &hit.Content, &meta, &hit.Distance); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &hit.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
		results = append(results, hit)
	}
	return results, rows.Err()
}

// DeleteByItemID removes every chunk belonging to an item and reports how
// many were removed.
func (r *ChunkRepository) DeleteByItemID(ctx context.Context, collection, itemID string) (int, error) {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM chunks WHERE collection_name = $1 AND metadata->>'item_id' = $2`,
		collection, itemID,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteByCollection removes every chunk in a collection.
func (r *ChunkRepository) DeleteByCollection(ctx context.Context, collection string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM chunks WHERE collection_name = $1`, collection)
	return err
}

// Count returns the number of chunks in a collection.
func (r *ChunkRepository) Count(ctx context.Context, collection string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM chunks WHERE collection_name = $1`,
		collection,
	).Scan(&count)
	return count, err
}

// DistinctCategories lists the categories present across the given
// collections, sorted.
func (r *ChunkRepository) DistinctCategories(ctx context.Context, collections []string) ([]string, error) {
	return r.distinctValues(ctx,
		`SELECT DISTINCT metadata->>'category' AS v
		 FROM chunks
		 WHERE collection_name = ANY($1) AND metadata->>'category' <> ''
		 ORDER BY v`,
		collections,
	)
}

// DistinctTags lists the tags present across the given collections, sorted.
func (r *ChunkRepository) DistinctTags(ctx context.Context, collections []string) ([]string, error) {
	return r.distinctValues(ctx,
		`SELECT DISTINCT t.v
		 FROM chunks, jsonb_array_elements_text(metadata->'tags') AS t(v)
		 WHERE collection_name = ANY($1)
		 ORDER BY t.v`,
		collections,
	)
}

func (r *ChunkRepository) distinctValues(ctx context.Context, query string, collections []string) ([]string, error) {
	if len(collections) == 0 {
		return []string{}, nil
	}

	rows, err := r.db.Query(ctx, query, collections)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// appendFilter extends a WHERE clause with metadata equality conditions.
// Tags match when any of the given tags is present on the chunk.
func appendFilter(query string, args []interface{}, filter domain.Filter) (string, []interface{}) {
	if filter.ItemID != "" {
		args = append(args, filter.ItemID)
		query += fmt.Sprintf(" AND metadata->>'item_id' = $%d", len(args))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		query += fmt.Sprintf(" AND metadata->>'category' = $%d", len(args))
	}
	if len(filter.Tags) > 0 {
		args = append(args, filter.Tags)
		query += fmt.Sprintf(" AND metadata->'tags' ?| $%d", len(args))
	}
	return query, args
}
