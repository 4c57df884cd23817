package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockCollectionStore is a mock implementation of CollectionStore
type MockCollectionStore struct {
	mock.Mock
}

func (m *MockCollectionStore) GetOrCreate(ctx context.Context, domainName string) (*domain.Collection, error) {
	args := m.Called(ctx, domainName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Collection), args.Error(1)
}

func (m *MockCollectionStore) List(ctx context.Context) ([]*domain.Collection, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Collection), args.Error(1)
}

// MockChunkIndex is a mock implementation of ChunkIndex
type MockChunkIndex struct {
	mock.Mock
}

func (m *MockChunkIndex) Upsert(ctx context.Context, collection string, records []domain.ChunkRecord) error {
	args := m.Called(ctx, collection, records)
	return args.Error(0)
}

func (m *MockChunkIndex) Get(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.ChunkRecord, error) {
	args := m.Called(ctx, collection, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkRecord), args.Error(1)
}

func (m *MockChunkIndex) Query(ctx context.Context, collection string, embedding []float32, k int, filter domain.Filter) ([]domain.ChunkHit, error) {
	args := m.Called(ctx, collection, embedding, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChunkHit), args.Error(1)
}

func (m *MockChunkIndex) DeleteByItemID(ctx context.Context, collection, itemID string) (int, error) {
	args := m.Called(ctx, collection, itemID)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkIndex) DeleteByCollection(ctx context.Context, collection string) error {
	args := m.Called(ctx, collection)
	return args.Error(0)
}

func (m *MockChunkIndex) Count(ctx context.Context, collection string) (int, error) {
	args := m.Called(ctx, collection)
	return args.Int(0), args.Error(1)
}

func (m *MockChunkIndex) DistinctCategories(ctx context.Context, collections []string) ([]string, error) {
	args := m.Called(ctx, collections)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockChunkIndex) DistinctTags(ctx context.Context, collections []string) ([]string, error) {
	args := m.Called(ctx, collections)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockStatusStore is a mock implementation of StatusStore
type MockStatusStore struct {
	mock.Mock
}

func (m *MockStatusStore) Get(ctx context.Context, domainName string) (*domain.InitStatus, error) {
	args := m.Called(ctx, domainName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InitStatus), args.Error(1)
}

func (m *MockStatusStore) Put(ctx context.Context, status domain.InitStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func (m *MockStatusStore) Touch(ctx context.Context, domainName string, lastCheck time.Time) error {
	args := m.Called(ctx, domainName, lastCheck)
	return args.Error(0)
}

func (m *MockStatusStore) Delete(ctx context.Context, domainName string) error {
	args := m.Called(ctx, domainName)
	return args.Error(0)
}

// stubEmbedder produces one deterministic vector per input text.
type stubEmbedder struct {
	dim      int
	err      error
	queryVec []float32
}

func (s *stubEmbedder) EmbedMany(ctx context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

func (s *stubEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.queryVec != nil {
		return s.queryVec, nil
	}
	return make([]float32, s.dim), nil
}

func (s *stubEmbedder) Dimension() int {
	return s.dim
}

// stubSplitter returns canned chunk texts and records the last input.
type stubSplitter struct {
	chunks    []string
	lastInput string
}

func (s *stubSplitter) Split(text string) []string {
	s.lastInput = text
	if s.chunks != nil {
		return s.chunks
	}
	if text == "" {
		return nil
	}
	return []string{text}
}
