package domain

import (
	"fmt"
	"time"
)

// Source values for knowledge items.
const (
	SourceUser   = "user"
	SourceSystem = "system"
)

// Category values assigned by the bootstrap classifier. User-supplied
// categories are free-form; these are only the built-in ones.
const (
	CategoryTroubleshooting = "troubleshooting"
	CategoryConfiguration   = "configuration"
	CategoryBestPractice    = "best_practice"
)

// KnowledgeItem is a logical knowledge unit addressable by one id.
// Content may be a single chunk's text (search results) or the full
// reconstructed document (export), depending on where it came from.
type KnowledgeItem struct {
	ID         string    `json:"id"`
	Domain     string    `json:"domain"`
	Category   string    `json:"category"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	Source     string    `json:"source"`
	SourceURL  *string   `json:"source_url,omitempty"`
	FilePath   *string   `json:"file_path,omitempty"`
	Priority   int       `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Similarity float64   `json:"similarity,omitempty"`
}

// ChunkMetadata is the full denormalized copy of an item's metadata carried
// by every chunk, so each chunk is self-describing.
type ChunkMetadata struct {
	ItemID      string    `json:"item_id"`
	Domain      string    `json:"domain"`
	Category    string    `json:"category"`
	Title       string    `json:"title"`
	Tags        []string  `json:"tags"`
	Source      string    `json:"source"`
	SourceURL   *string   `json:"source_url,omitempty"`
	FilePath    *string   `json:"file_path,omitempty"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
}

// ChunkID derives the stored id for chunk i of an item.
func ChunkID(itemID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", itemID, index)
}

// ChunkRecord is one indexed record: a chunk's text, its embedding and the
// denormalized item metadata.
type ChunkRecord struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  ChunkMetadata
}

// ChunkHit is a ChunkRecord returned by a similarity query together with the
// index's native distance (smaller is closer).
type ChunkHit struct {
	ChunkRecord
	Distance float64
}

// Filter restricts index reads by exact metadata equality; Tags matches when
// any of the given tags is present on the chunk ($in semantics).
type Filter struct {
	ItemID   string
	Category string
	Tags     []string
}

// Empty reports whether the filter imposes no restriction.
func (f Filter) Empty() bool {
	return f.ItemID == "" && f.Category == "" && len(f.Tags) == 0
}

// Collection is one per-domain index collection.
type Collection struct {
	Name      string
	Domain    string
	CreatedAt time.Time
}

// Export is the document produced by exporting one or all domains.
type Export struct {
	ExportedAt time.Time       `json:"exported_at"`
	Items      []KnowledgeItem `json:"items"`
}

// Item builds a KnowledgeItem from chunk metadata and the given content.
func (m ChunkMetadata) Item(content string) KnowledgeItem {
	return KnowledgeItem{
		ID:        m.ItemID,
		Domain:    m.Domain,
		Category:  m.Category,
		Title:     m.Title,
		Content:   content,
		Tags:      m.Tags,
		Source:    m.Source,
		SourceURL: m.SourceURL,
		FilePath:  m.FilePath,
		Priority:  m.Priority,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
