package service

import (
	"context"
	"log"
	"sort"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/cloo-solutions/knowbase/internal/telemetry"
)

// SearchInput represents the input for a knowledge search
type SearchInput struct {
	Query    string
	Domain   string
	Category string
	Tags     []string
	TopK     int
}

// Search retrieves the most relevant items for the input. With a query the
// semantic path ranks chunk hits by similarity; without one the metadata
// path lists the newest matching items. Each item appears at most once,
// represented by its best-matching chunk. The read path degrades to an
// empty result on backend failure, so an empty slice is ambiguous between
// "no match" and "backend down"; the failure is logged and captured.
func (s *KnowledgeService) Search(ctx context.Context, input SearchInput) ([]domain.KnowledgeItem, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Search", telemetry.SpanAttributes{
		Domain:    input.Domain,
		Operation: "search",
	})
	defer span.End()

	items, err := s.searchItems(ctx, input)
	if err != nil {
		log.Printf("knowledge: search degraded to empty result: %v", err)
		telemetry.CaptureError(ctx, err)
		span.SetError(err)
		return []domain.KnowledgeItem{}, nil
	}
	return items, nil
}

func (s *KnowledgeService) searchItems(ctx context.Context, input SearchInput) ([]domain.KnowledgeItem, error) {
	topK := input.TopK
	if topK <= 0 {
		topK = s.opts.TopK
	}
	filter := domain.Filter{Category: input.Category, Tags: input.Tags}

	targets, err := s.targetCollections(ctx, input.Domain)
	if err != nil {
		return nil, err
	}

	if input.Query == "" {
		return s.searchByMetadata(ctx, targets, filter, topK)
	}
	return s.searchBySimilarity(ctx, input.Query, targets, filter, topK)
}

// searchByMetadata lists matching chunks per collection, newest items
// first. The returned content is the representative chunk's text, not the
// reconstructed item.
func (s *KnowledgeService) searchByMetadata(ctx context.Context, targets []string, filter domain.Filter, topK int) ([]domain.KnowledgeItem, error) {
	var all []domain.ChunkRecord
	for _, name := range targets {
		chunks, err := s.index.Get(ctx, name, filter, metadataFetchCap)
		if err != nil {
			return nil, indexError("fetch chunks", err)
		}
		all = append(all, chunks...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Metadata.CreatedAt.After(all[j].Metadata.CreatedAt)
	})

	items := make([]domain.KnowledgeItem, 0, topK)
	seen := make(map[string]struct{}, len(all))
	for _, c := range all {
		if _, ok := seen[c.Metadata.ItemID]; ok {
			continue
		}
		seen[c.Metadata.ItemID] = struct{}{}
		items = append(items, c.Metadata.Item(c.Content))
		if len(items) == topK {
			break
		}
	}
	return items, nil
}

// searchBySimilarity embeds the query once, runs a nearest-neighbor query
// per collection and merges the hits: threshold filter, similarity sort,
// best-chunk-per-item dedup, top-k truncation.
func (s *KnowledgeService) searchBySimilarity(ctx context.Context, query string, targets []string, filter domain.Filter, topK int) ([]domain.KnowledgeItem, error) {
	embedding, err := s.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeEmbedding, "failed to embed query", err)
	}

	var hits []domain.ChunkHit
	for _, name := range targets {
		collectionHits, err := s.index.Query(ctx, name, embedding, topK, filter)
		if err != nil {
			return nil, indexError("similarity query", err)
		}
		hits = append(hits, collectionHits...)
	}

	type scoredHit struct {
		hit        domain.ChunkHit
		similarity float64
	}
	scored := make([]scoredHit, 0, len(hits))
	for _, h := range hits {
		sim := similarity(h.Distance)
		if sim < s.opts.SimilarityThreshold {
			continue
		}
		scored = append(scored, scoredHit{hit: h, similarity: sim})
	}

	// Stable sort keeps the index's native order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].similarity > scored[j].similarity
	})

	items := make([]domain.KnowledgeItem, 0, topK)
	seen := make(map[string]struct{}, len(scored))
	for _, sh := range scored {
		if _, ok := seen[sh.hit.Metadata.ItemID]; ok {
			continue
		}
		seen[sh.hit.Metadata.ItemID] = struct{}{}
		item := sh.hit.Metadata.Item(sh.hit.Content)
		item.Similarity = sh.similarity
		items = append(items, item)
		if len(items) == topK {
			break
		}
	}
	return items, nil
}

// targetCollections resolves the collections a search or export runs
// against: the given domain's collection, or every known collection.
func (s *KnowledgeService) targetCollections(ctx context.Context, domainName string) ([]string, error) {
	if domainName != "" {
		c, err := s.collections.GetOrCreate(ctx, domainName)
		if err != nil {
			return nil, indexError("resolve collection", err)
		}
		return []string{c.Name}, nil
	}

	collections, err := s.collections.List(ctx)
	if err != nil {
		return nil, indexError("list collections", err)
	}
	names := make([]string, len(collections))
	for i, c := range collections {
		names[i] = c.Name
	}
	return names, nil
}

// similarity converts the index's native distance to a similarity score.
func similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}
