package service

import (
	"context"
	"sort"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/cloo-solutions/knowbase/internal/telemetry"
)

// Export reconstructs every item of a domain (or of all domains when
// domainName is empty) by grouping chunks on item id and joining their
// texts in index order. Byte stability across repeated exports is not
// guaranteed when chunk-index ties exist.
func (s *KnowledgeService) Export(ctx context.Context, domainName string) (*domain.Export, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Export", telemetry.SpanAttributes{
		Domain:    domainName,
		Operation: "export",
	})
	defer span.End()

	targets, err := s.targetCollections(ctx, domainName)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	items := make([]domain.KnowledgeItem, 0)
	for _, name := range targets {
		chunks, err := s.index.Get(ctx, name, domain.Filter{}, 0)
		if err != nil {
			span.SetError(err)
			return nil, indexError("fetch chunks", err)
		}
		items = append(items, reconstructItems(chunks)...)
	}

	return &domain.Export{
		ExportedAt: s.now().UTC(),
		Items:      items,
	}, nil
}

// reconstructItems groups chunks by item id, preserving first-seen item
// order, and joins each group's texts in chunk-index order.
func reconstructItems(chunks []domain.ChunkRecord) []domain.KnowledgeItem {
	groups := make(map[string][]domain.ChunkRecord, len(chunks))
	order := make([]string, 0, len(chunks))
	for _, c := range chunks {
		id := c.Metadata.ItemID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], c)
	}

	items := make([]domain.KnowledgeItem, 0, len(order))
	for _, id := range order {
		group := groups[id]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Metadata.ChunkIndex < group[j].Metadata.ChunkIndex
		})
		items = append(items, group[0].Metadata.Item(joinChunkTexts(group)))
	}
	return items
}

// Domains lists every known knowledge domain.
func (s *KnowledgeService) Domains(ctx context.Context) ([]string, error) {
	collections, err := s.collections.List(ctx)
	if err != nil {
		return nil, indexError("list collections", err)
	}
	domains := make([]string, len(collections))
	for i, c := range collections {
		domains[i] = c.Domain
	}
	return domains, nil
}

// Categories lists the distinct categories in a domain, or across all
// domains when domainName is empty.
func (s *KnowledgeService) Categories(ctx context.Context, domainName string) ([]string, error) {
	targets, err := s.targetCollections(ctx, domainName)
	if err != nil {
		return nil, err
	}
	values, err := s.index.DistinctCategories(ctx, targets)
	if err != nil {
		return nil, indexError("list categories", err)
	}
	return values, nil
}

// Tags lists the distinct tags in a domain, or across all domains when
// domainName is empty.
func (s *KnowledgeService) Tags(ctx context.Context, domainName string) ([]string, error) {
	targets, err := s.targetCollections(ctx, domainName)
	if err != nil {
		return nil, err
	}
	values, err := s.index.DistinctTags(ctx, targets)
	if err != nil {
		return nil, indexError("list tags", err)
	}
	return values, nil
}
