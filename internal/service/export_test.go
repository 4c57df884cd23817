package service

import (
	"context"
	"testing"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestKnowledgeService_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("reconstructs items joining chunks in index order", func(t *testing.T) {
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		svc := NewKnowledgeServiceWithClock(collections, index, &stubEmbedder{dim: 4}, &stubSplitter{}, Options{}, fixedClock)

		collections.On("GetOrCreate", mock.Anything, "rocketmq").Return(testCollection("rocketmq"), nil)
		index.On("Get", mock.Anything, "knowledge_rocketmq", domain.Filter{}, 0).Return([]domain.ChunkRecord{
			chunkOf("rocketmq_a", "second half", 1, fixedTime),
			chunkOf("rocketmq_b", "single chunk item", 0, fixedTime),
			chunkOf("rocketmq_a", "first half", 0, fixedTime),
		}, nil)

		export, err := svc.Export(ctx, "rocketmq")

		require.NoError(t, err)
		assert.Equal(t, fixedTime, export.ExportedAt)
		require.Len(t, export.Items, 2)

		byID := make(map[string]domain.KnowledgeItem)
		for _, item := range export.Items {
			byID[item.ID] = item
		}
		assert.Equal(t, "first half second half", byID["rocketmq_a"].Content)
		assert.Equal(t, "single chunk item", byID["rocketmq_b"].Content)
	})

	t.Run("no domain exports every collection", func(t *testing.T) {
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		svc := NewKnowledgeServiceWithClock(collections, index, &stubEmbedder{dim: 4}, &stubSplitter{}, Options{}, fixedClock)

		collections.On("List", mock.Anything).Return([]*domain.Collection{testCollection("kafka"), testCollection("rocketmq")}, nil)
		index.On("Get", mock.Anything, "knowledge_kafka", domain.Filter{}, 0).Return([]domain.ChunkRecord{
			chunkOf("kafka_1", "kafka content", 0, fixedTime),
		}, nil)
		index.On("Get", mock.Anything, "knowledge_rocketmq", domain.Filter{}, 0).Return([]domain.ChunkRecord{
			chunkOf("rocketmq_1", "rocketmq content", 0, fixedTime),
		}, nil)

		export, err := svc.Export(ctx, "")

		require.NoError(t, err)
		assert.Len(t, export.Items, 2)
	})

	t.Run("empty domain yields an empty item list", func(t *testing.T) {
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		svc := NewKnowledgeServiceWithClock(collections, index, &stubEmbedder{dim: 4}, &stubSplitter{}, Options{}, fixedClock)

		collections.On("GetOrCreate", mock.Anything, "rocketmq").Return(testCollection("rocketmq"), nil)
		index.On("Get", mock.Anything, "knowledge_rocketmq", domain.Filter{}, 0).Return([]domain.ChunkRecord{}, nil)

		export, err := svc.Export(ctx, "rocketmq")

		require.NoError(t, err)
		assert.NotNil(t, export.Items)
		assert.Empty(t, export.Items)
	})
}

func TestKnowledgeService_Listings(t *testing.T) {
	ctx := context.Background()

	t.Run("domains", func(t *testing.T) {
		collections := new(MockCollectionStore)
		svc := NewKnowledgeService(collections, new(MockChunkIndex), &stubEmbedder{dim: 4}, &stubSplitter{}, Options{})

		collections.On("List", mock.Anything).Return([]*domain.Collection{testCollection("kafka"), testCollection("rocketmq")}, nil)

		domains, err := svc.Domains(ctx)

		require.NoError(t, err)
		assert.Equal(t, []string{"kafka", "rocketmq"}, domains)
	})

	t.Run("categories scoped to a domain", func(t *testing.T) {
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		svc := NewKnowledgeService(collections, index, &stubEmbedder{dim: 4}, &stubSplitter{}, Options{})

		collections.On("GetOrCreate", mock.Anything, "rocketmq").Return(testCollection("rocketmq"), nil)
		index.On("DistinctCategories", mock.Anything, []string{"knowledge_rocketmq"}).Return([]string{"configuration", "troubleshooting"}, nil)

		categories, err := svc.Categories(ctx, "rocketmq")

		require.NoError(t, err)
		assert.Equal(t, []string{"configuration", "troubleshooting"}, categories)
	})

	t.Run("tags across all domains", func(t *testing.T) {
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		svc := NewKnowledgeService(collections, index, &stubEmbedder{dim: 4}, &stubSplitter{}, Options{})

		collections.On("List", mock.Anything).Return([]*domain.Collection{testCollection("kafka"), testCollection("rocketmq")}, nil)
		index.On("DistinctTags", mock.Anything, []string{"knowledge_kafka", "knowledge_rocketmq"}).Return([]string{"broker", "tls"}, nil)

		tags, err := svc.Tags(ctx, "")

		require.NoError(t, err)
		assert.Equal(t, []string{"broker", "tls"}, tags)
	})
}
