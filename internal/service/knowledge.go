package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/cloo-solutions/knowbase/internal/telemetry"
)

// CollectionStore routes domains to index collections.
type CollectionStore interface {
	GetOrCreate(ctx context.Context, domainName string) (*domain.Collection, error)
	List(ctx context.Context) ([]*domain.Collection, error)
}

// ChunkIndex is the vector index surface the service writes and reads.
type ChunkIndex interface {
	Upsert(ctx context.Context, collection string, records []domain.ChunkRecord) error
	Get(ctx context.Context, collection string, filter domain.Filter, limit int) ([]domain.ChunkRecord, error)
	Query(ctx context.Context, collection string, embedding []float32, k int, filter domain.Filter) ([]domain.ChunkHit, error)
	DeleteByItemID(ctx context.Context, collection, itemID string) (int, error)
	DeleteByCollection(ctx context.Context, collection string) error
	Count(ctx context.Context, collection string) (int, error)
	DistinctCategories(ctx context.Context, collections []string) ([]string, error)
	DistinctTags(ctx context.Context, collections []string) ([]string, error)
}

// Embedder turns text into fixed-length vectors.
type Embedder interface {
	EmbedOne(ctx context.Context, text string) ([]float32, error)
	EmbedMany(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Splitter breaks document text into chunk texts.
type Splitter interface {
	Split(text string) []string
}

// metadataFetchCap bounds how many chunks a no-query search pulls from one
// collection before sorting and deduplicating.
const metadataFetchCap = 1000

const (
	defaultTopK      = 5
	defaultPriority  = 3
	minPriority      = 1
	maxPriority      = 5
	itemIDTimeFormat = "20060102150405"
)

// Options tunes search behavior.
type Options struct {
	TopK                int
	SimilarityThreshold float64
}

// KnowledgeService owns the knowledge item/chunk lifecycle: items are
// created together with their chunks, replaced wholesale on update, and
// destroyed together on delete. Concurrent writers on the same item id are
// a caller contract violation; operations on distinct items are safe to run
// in parallel.
type KnowledgeService struct {
	collections CollectionStore
	index       ChunkIndex
	embedder    Embedder
	splitter    Splitter
	opts        Options
	now         func() time.Time
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(
	collections CollectionStore,
	index ChunkIndex,
	embedder Embedder,
	splitter Splitter,
	opts Options,
) *KnowledgeService {
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	return &KnowledgeService{
		collections: collections,
		index:       index,
		embedder:    embedder,
		splitter:    splitter,
		opts:        opts,
		now:         time.Now,
	}
}

// NewKnowledgeServiceWithClock creates a KnowledgeService with a custom clock (for testing)
func NewKnowledgeServiceWithClock(
	collections CollectionStore,
	index ChunkIndex,
	embedder Embedder,
	splitter Splitter,
	opts Options,
	now func() time.Time,
) *KnowledgeService {
	s := NewKnowledgeService(collections, index, embedder, splitter, opts)
	s.now = now
	return s
}

// AddInput represents the input for adding a knowledge item. SourceURL and
// FilePath are optional provenance fields; nil means absent.
type AddInput struct {
	Domain    string
	Category  string
	Title     string
	Content   string
	Tags      []string
	Source    string
	SourceURL *string
	FilePath  *string
	Priority  int
}

// Add chunks, embeds and indexes a new knowledge item and returns its id.
// Content that chunks to nothing still yields a valid id; the item simply
// has no searchable chunks. Embedding failure aborts the whole call with no
// partial writes.
func (s *KnowledgeService) Add(ctx context.Context, input AddInput) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Add", telemetry.SpanAttributes{
		Domain:    input.Domain,
		Operation: "add",
	})
	defer span.End()

	if input.Domain == "" {
		return "", domain.ErrEmptyDomain
	}
	if input.Title == "" {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "title must not be empty")
	}

	now := s.now().UTC()
	itemID := mintItemID(input.Domain, now)

	meta := domain.ChunkMetadata{
		ItemID:    itemID,
		Domain:    input.Domain,
		Category:  input.Category,
		Title:     input.Title,
		Tags:      normalizeTags(input.Tags),
		Source:    input.Source,
		SourceURL: input.SourceURL,
		FilePath:  input.FilePath,
		Priority:  clampPriority(input.Priority),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if meta.Source == "" {
		meta.Source = domain.SourceUser
	}

	if err := s.writeChunks(ctx, input.Domain, input.Content, meta); err != nil {
		span.SetError(err)
		return "", err
	}
	return itemID, nil
}

// Update replaces an item's chunks with freshly chunked content, merging
// the given field overrides into the stored metadata. When content is not
// overridden it is reconstructed by joining the old chunk texts in index
// order. Returns false when the item id is unknown.
func (s *KnowledgeService) Update(ctx context.Context, itemID string, fields domain.UpdateFields) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Update", telemetry.SpanAttributes{
		ItemID:    itemID,
		Operation: "update",
	})
	defer span.End()

	loc, err := s.locateItem(ctx, itemID)
	if err != nil {
		span.SetError(err)
		return false, err
	}
	if loc == nil {
		return false, nil
	}

	content := joinChunkTexts(loc.chunks)
	if fields.Content != nil {
		content = *fields.Content
	}

	meta := loc.chunks[0].Metadata
	if fields.Category != nil {
		meta.Category = *fields.Category
	}
	if fields.Title != nil {
		meta.Title = *fields.Title
	}
	if fields.Tags != nil {
		meta.Tags = normalizeTags(fields.Tags)
	}
	if fields.Priority != nil {
		meta.Priority = clampPriority(*fields.Priority)
	}
	meta.UpdatedAt = s.now().UTC()

	// Old chunks go first; a crash between delete and write leaves the item
	// with zero chunks rather than a mixed chunk set.
	if _, err := s.index.DeleteByItemID(ctx, loc.collection, itemID); err != nil {
		span.SetError(err)
		return false, indexError("delete chunks", err)
	}

	if err := s.writeChunks(ctx, meta.Domain, content, meta); err != nil {
		span.SetError(err)
		return false, err
	}
	return true, nil
}

// Delete removes an item and all of its chunks. Returns false when the item
// id is unknown in every domain.
func (s *KnowledgeService) Delete(ctx context.Context, itemID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Delete", telemetry.SpanAttributes{
		ItemID:    itemID,
		Operation: "delete",
	})
	defer span.End()

	collections, err := s.collections.List(ctx)
	if err != nil {
		span.SetError(err)
		return false, indexError("list collections", err)
	}

	deleted := 0
	for _, c := range collections {
		n, err := s.index.DeleteByItemID(ctx, c.Name, itemID)
		if err != nil {
			span.SetError(err)
			return false, indexError("delete chunks", err)
		}
		deleted += n
	}
	return deleted > 0, nil
}

// writeChunks splits content, embeds the chunk texts in one batch and
// writes one index record per chunk into the item's domain collection.
func (s *KnowledgeService) writeChunks(ctx context.Context, domainName, content string, meta domain.ChunkMetadata) error {
	texts := s.splitter.Split(content)
	if len(texts) == 0 {
		return nil
	}

	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "failed to embed chunks", err)
	}

	collection, err := s.collections.GetOrCreate(ctx, domainName)
	if err != nil {
		return indexError("resolve collection", err)
	}

	records := make([]domain.ChunkRecord, len(texts))
	for i, text := range texts {
		m := meta
		m.ChunkIndex = i
		m.TotalChunks = len(texts)
		records[i] = domain.ChunkRecord{
			ID:        domain.ChunkID(meta.ItemID, i),
			Content:   text,
			Embedding: vectors[i],
			Metadata:  m,
		}
	}

	if err := s.index.Upsert(ctx, collection.Name, records); err != nil {
		return indexError("write chunks", err)
	}
	return nil
}

// itemLocation is the result of scanning domain collections for an item.
type itemLocation struct {
	collection string
	chunks     []domain.ChunkRecord
}

// locateItem scans all domain collections for the chunks of an item. The
// linear scan is acceptable while domain cardinality stays small.
func (s *KnowledgeService) locateItem(ctx context.Context, itemID string) (*itemLocation, error) {
	collections, err := s.collections.List(ctx)
	if err != nil {
		return nil, indexError("list collections", err)
	}

	for _, c := range collections {
		chunks, err := s.index.Get(ctx, c.Name, domain.Filter{ItemID: itemID}, 0)
		if err != nil {
			return nil, indexError("fetch chunks", err)
		}
		if len(chunks) == 0 {
			continue
		}
		sort.Slice(chunks, func(i, j int) bool {
			return chunks[i].Metadata.ChunkIndex < chunks[j].Metadata.ChunkIndex
		})
		return &itemLocation{collection: c.Name, chunks: chunks}, nil
	}
	return nil, nil
}

// joinChunkTexts reconstructs item content from chunks already sorted by
// chunk index. Original separators between chunks are not recoverable; a
// single space stands in.
func joinChunkTexts(chunks []domain.ChunkRecord) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return strings.Join(texts, " ")
}

// mintItemID derives an item id from the domain and a high-resolution
// UTC timestamp.
func mintItemID(domainName string, now time.Time) string {
	return fmt.Sprintf("%s_%s%06d", domainName, now.Format(itemIDTimeFormat), now.Nanosecond()/1000)
}

func clampPriority(p int) int {
	if p == 0 {
		return defaultPriority
	}
	if p < minPriority {
		return minPriority
	}
	if p > maxPriority {
		return maxPriority
	}
	return p
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func indexError(op string, err error) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeConnection, "index "+op+" failed", err)
}
