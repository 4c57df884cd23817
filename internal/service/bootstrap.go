package service

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/cloo-solutions/knowbase/internal/telemetry"
)

// StatusStore persists the per-domain bootstrap status rows.
type StatusStore interface {
	Get(ctx context.Context, domainName string) (*domain.InitStatus, error)
	Put(ctx context.Context, status domain.InitStatus) error
	Touch(ctx context.Context, domainName string, lastCheck time.Time) error
	Delete(ctx context.Context, domainName string) error
}

// ItemAdder is the slice of the knowledge service the initializer uses to
// ingest documents.
type ItemAdder interface {
	Add(ctx context.Context, input AddInput) (string, error)
}

// ContentPack names a built-in content tree to ingest into one domain.
// Version changes force a one-time clear and re-ingest of the domain.
type ContentPack struct {
	Domain  string
	Version string
	Dir     string
}

// Initializer populates built-in content packs exactly once per tracked
// version. A pack whose status row matches the shipped version is never
// diffed against the filesystem again; only a version bump or an explicit
// ForceReinitialize re-ingests it.
type Initializer struct {
	adder       ItemAdder
	status      StatusStore
	collections CollectionStore
	index       ChunkIndex
	classifier  Classifier
	now         func() time.Time
}

// NewInitializer creates a new Initializer instance
func NewInitializer(
	adder ItemAdder,
	status StatusStore,
	collections CollectionStore,
	index ChunkIndex,
	classifier Classifier,
) *Initializer {
	if classifier == nil {
		classifier = KeywordClassifier{}
	}
	return &Initializer{
		adder:       adder,
		status:      status,
		collections: collections,
		index:       index,
		classifier:  classifier,
		now:         time.Now,
	}
}

// NewInitializerWithClock creates an Initializer with a custom clock (for testing)
func NewInitializerWithClock(
	adder ItemAdder,
	status StatusStore,
	collections CollectionStore,
	index ChunkIndex,
	classifier Classifier,
	now func() time.Time,
) *Initializer {
	i := NewInitializer(adder, status, collections, index, classifier)
	i.now = now
	return i
}

// EnsureInitialized ingests the pack unless its domain is already
// initialized at the pack's version. An already-initialized domain only
// gets its last_check touched; a version mismatch clears the domain's
// collection and re-ingests once.
func (i *Initializer) EnsureInitialized(ctx context.Context, pack ContentPack) error {
	ctx, span := telemetry.StartSpan(ctx, "Initializer.EnsureInitialized", telemetry.SpanAttributes{
		Domain:    pack.Domain,
		Operation: "bootstrap",
	})
	defer span.End()

	if pack.Domain == "" {
		return domain.ErrEmptyDomain
	}

	status, err := i.status.Get(ctx, pack.Domain)
	if err != nil {
		span.SetError(err)
		return indexError("read init status", err)
	}

	if status != nil {
		if status.Version == pack.Version {
			if err := i.status.Touch(ctx, pack.Domain, i.now().UTC()); err != nil {
				span.SetError(err)
				return indexError("touch init status", err)
			}
			return nil
		}
		log.Printf("bootstrap: domain %s at version %q, pack is %q, re-ingesting", pack.Domain, status.Version, pack.Version)
		if err := i.clearDomain(ctx, pack.Domain); err != nil {
			span.SetError(err)
			return err
		}
	}

	if err := i.ingest(ctx, pack); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// ForceReinitialize clears a domain's collection and status and re-ingests
// the pack regardless of its recorded version.
func (i *Initializer) ForceReinitialize(ctx context.Context, pack ContentPack) error {
	ctx, span := telemetry.StartSpan(ctx, "Initializer.ForceReinitialize", telemetry.SpanAttributes{
		Domain:    pack.Domain,
		Operation: "reinitialize",
	})
	defer span.End()

	if pack.Domain == "" {
		return domain.ErrEmptyDomain
	}

	if err := i.clearDomain(ctx, pack.Domain); err != nil {
		span.SetError(err)
		return err
	}
	if err := i.ingest(ctx, pack); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

func (i *Initializer) clearDomain(ctx context.Context, domainName string) error {
	collection, err := i.collections.GetOrCreate(ctx, domainName)
	if err != nil {
		return indexError("resolve collection", err)
	}
	if err := i.index.DeleteByCollection(ctx, collection.Name); err != nil {
		return indexError("clear collection", err)
	}
	if err := i.status.Delete(ctx, domainName); err != nil {
		return indexError("clear init status", err)
	}
	return nil
}

// ingest walks the pack directory, adds every markdown document and records
// the resulting status row.
func (i *Initializer) ingest(ctx context.Context, pack ContentPack) error {
	docs, err := loadPackDocuments(pack.Dir)
	if err != nil {
		return fmt.Errorf("load content pack %s: %w", pack.Domain, err)
	}

	itemCount := 0
	for _, doc := range docs {
		category := i.classifier.Classify(doc.path, doc.body)
		path := doc.path
		_, err := i.adder.Add(ctx, AddInput{
			Domain:   pack.Domain,
			Category: category,
			Title:    doc.title,
			Content:  doc.body,
			Tags:     doc.tags,
			Source:   domain.SourceSystem,
			FilePath: &path,
			Priority: PriorityFor(category),
		})
		if err != nil {
			return fmt.Errorf("ingest %s: %w", doc.path, err)
		}
		itemCount++
	}

	collection, err := i.collections.GetOrCreate(ctx, pack.Domain)
	if err != nil {
		return indexError("resolve collection", err)
	}
	chunkCount, err := i.index.Count(ctx, collection.Name)
	if err != nil {
		return indexError("count chunks", err)
	}

	now := i.now().UTC()
	status := domain.InitStatus{
		Domain:        pack.Domain,
		Version:       pack.Version,
		InitializedAt: now,
		ItemCount:     itemCount,
		ChunkCount:    chunkCount,
		LastCheck:     now,
	}
	if err := i.status.Put(ctx, status); err != nil {
		return indexError("write init status", err)
	}

	log.Printf("bootstrap: domain %s initialized at version %q (%d items, %d chunks)", pack.Domain, pack.Version, itemCount, chunkCount)
	return nil
}

// packDocument is one parsed markdown file from a content pack.
type packDocument struct {
	path  string
	title string
	body  string
	tags  []string
}

// loadPackDocuments walks a content tree and parses every markdown file.
// Unreadable files are skipped with a warning.
func loadPackDocuments(dir string) ([]packDocument, error) {
	var docs []packDocument
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		body, readErr := os.ReadFile(path)
		if readErr != nil {
			log.Printf("bootstrap: skipping unreadable file %s: %v", path, readErr)
			return nil
		}
		docs = append(docs, packDocument{
			path:  path,
			title: documentTitle(path, string(body)),
			body:  string(body),
			tags:  documentTags(path),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// documentTitle returns the first level-one heading, falling back to the
// file stem.
func documentTitle(path, body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return fileStem(path)
}

// documentTags derives tags from the parent directory name and the
// filename's keywords longer than two characters.
func documentTags(path string) []string {
	tags := make([]string, 0, 4)
	seen := make(map[string]struct{})
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if utf8.RuneCountInString(tag) <= 2 {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	add(filepath.Base(filepath.Dir(path)))
	for _, word := range strings.FieldsFunc(fileStem(path), func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	}) {
		add(word)
	}
	return tags
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
