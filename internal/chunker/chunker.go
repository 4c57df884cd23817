// Package chunker splits document text into bounded, overlapping,
// boundary-aware segments for embedding.
package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Config controls chunk sizing. Lengths are in runes, not bytes.
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// DefaultConfig provides sane defaults for chunking.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// minChunkRunes is the floor below which a split fragment carries no
// retrievable signal and is dropped outright.
const minChunkRunes = 10

// separators is the split priority cascade: paragraph break, line break,
// sentence punctuation (CJK then ASCII), clause punctuation, whitespace,
// and finally individual characters.
var separators = []string{
	"\n\n", "\n",
	"。", "！", "？", "；",
	".", "!", "?", ";",
	"，", ",",
	" ", "",
}

// separatorCutset holds the separator punctuation stripped before applying
// the minimum-length floor.
const separatorCutset = "。！？；.!?;，,"

// Chunker is a deterministic text splitter: identical input and config
// always produce the identical chunk sequence. Chunk identity is not
// stable across config changes.
type Chunker struct {
	cfg Config
}

// New returns a Chunker with the given config, falling back to defaults
// for non-positive sizes and clamping overlap below the chunk size.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = cfg.ChunkSize / 2
	}
	return &Chunker{cfg: cfg}
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// Split breaks text into chunks. Text at or under the chunk size is
// returned as a single chunk unchanged; blank text yields no chunks.
// Longer text is split on the separator cascade, merged back up to the
// chunk size with overlap, and fragments under the minimum floor are
// dropped. Any internal failure degrades to the whole text as one chunk.
func (c *Chunker) Split(text string) (chunks []string) {
	defer func() {
		if recover() != nil {
			chunks = []string{text}
		}
	}()

	if strings.TrimSpace(text) == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= c.cfg.ChunkSize {
		return []string{text}
	}

	out := make([]string, 0, 8)
	for _, piece := range c.splitRecursive(text, separators) {
		if runeLen(stripSeparators(piece)) < minChunkRunes {
			continue
		}
		out = append(out, piece)
	}
	if len(out) == 0 {
		return []string{text}
	}
	return out
}

// splitRecursive splits text on the first separator of the cascade that
// occurs in it, recursing into any piece still over the chunk size with
// the remaining separators.
func (c *Chunker) splitRecursive(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var rest []string
	for i, s := range seps {
		if s == "" {
			sep = ""
			rest = nil
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = seps[i+1:]
			break
		}
	}

	splits := splitKeepSeparator(text, sep)

	final := make([]string, 0, len(splits))
	good := make([]string, 0, len(splits))
	for _, s := range splits {
		if runeLen(s) < c.cfg.ChunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, c.mergeSplits(good)...)
			good = good[:0]
		}
		if len(rest) == 0 {
			final = append(final, s)
		} else {
			final = append(final, c.splitRecursive(s, rest)...)
		}
	}
	if len(good) > 0 {
		final = append(final, c.mergeSplits(good)...)
	}
	return final
}

// mergeSplits packs consecutive splits into chunks of at most ChunkSize
// runes, carrying ChunkOverlap runes of trailing splits into the next
// chunk. Splits already contain their separators, so pieces join directly.
func (c *Chunker) mergeSplits(splits []string) []string {
	docs := make([]string, 0, 4)
	current := make([]string, 0, 8)
	total := 0

	for _, s := range splits {
		n := runeLen(s)
		if total+n > c.cfg.ChunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.cfg.ChunkOverlap || (total+n > c.cfg.ChunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, s)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepSeparator splits text on sep, keeping each separator attached
// to the front of the piece that follows it. An empty sep splits into
// individual runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		out := make([]string, 0, len(runes))
		for _, r := range runes {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func stripSeparators(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(separatorCutset, r)
	})
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
