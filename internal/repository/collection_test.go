//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/cloo-solutions/knowbase/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionRepository_GetOrCreate(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCollectionRepository(pool)

	c, err := repo.GetOrCreate(ctx, "rocketmq")
	require.NoError(t, err)
	assert.Equal(t, "knowledge_rocketmq", c.Name)
	assert.Equal(t, "rocketmq", c.Domain)
	assert.False(t, c.CreatedAt.IsZero())

	// Second call resolves the existing row.
	again, err := repo.GetOrCreate(ctx, "rocketmq")
	require.NoError(t, err)
	assert.Equal(t, c.Name, again.Name)
	assert.Equal(t, c.CreatedAt, again.CreatedAt)
}

func TestCollectionRepository_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCollectionRepository(pool)

	_, err := repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestCollectionRepository_List(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewCollectionRepository(pool)

	for _, d := range []string{"rocketmq", "kafka", "pulsar"} {
		_, err := repo.GetOrCreate(ctx, d)
		require.NoError(t, err)
	}

	collections, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 3)

	domains := make([]string, 0, len(collections))
	for _, c := range collections {
		domains = append(domains, c.Domain)
	}
	assert.ElementsMatch(t, []string{"rocketmq", "kafka", "pulsar"}, domains)
}
