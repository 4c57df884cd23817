package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("defaults applied for zero config", func(t *testing.T) {
		c := New(Config{})
		assert.Equal(t, DefaultConfig(), c.Config())
	})

	t.Run("overlap clamped below chunk size", func(t *testing.T) {
		c := New(Config{ChunkSize: 100, ChunkOverlap: 100})
		assert.Equal(t, 50, c.Config().ChunkOverlap)
	})

	t.Run("negative overlap clamped to zero", func(t *testing.T) {
		c := New(Config{ChunkSize: 100, ChunkOverlap: -1})
		assert.Equal(t, 0, c.Config().ChunkOverlap)
	})
}

func TestSplitShortText(t *testing.T) {
	c := New(DefaultConfig())

	chunks := c.Split("broker registration fails when the nameserver address is stale")
	require.Len(t, chunks, 1)
	assert.Equal(t, "broker registration fails when the nameserver address is stale", chunks[0])
}

func TestSplitBlankText(t *testing.T) {
	c := New(DefaultConfig())

	assert.Empty(t, c.Split(""))
	assert.Empty(t, c.Split("   \n\t  "))
}

func TestSplitLengthBound(t *testing.T) {
	c := New(Config{ChunkSize: 100, ChunkOverlap: 20})
	text := strings.Repeat("The broker failed to start because the disk was full. ", 40)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 100)
		assert.GreaterOrEqual(t, utf8.RuneCountInString(stripSeparators(chunk)), 10)
	}
}

func TestSplitCJKSentences(t *testing.T) {
	c := New(Config{ChunkSize: 50, ChunkOverlap: 10})
	text := strings.Repeat("消息堆积通常是因为消费者处理速度跟不上生产速度。", 10)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 50)
		assert.Contains(t, chunk, "消息堆积")
	}
}

func TestSplitDeterministic(t *testing.T) {
	c := New(Config{ChunkSize: 80, ChunkOverlap: 16})
	text := strings.Repeat("Consumers rebalance when the group membership changes. ", 30)

	first := c.Split(text)
	second := c.Split(text)
	assert.Equal(t, first, second)
}

func TestSplitDropsTinyFragments(t *testing.T) {
	c := New(Config{ChunkSize: 30, ChunkOverlap: 5})
	text := strings.Repeat("x", 40) + ". ok."

	chunks := c.Split(text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotContains(t, chunk, "ok")
		assert.GreaterOrEqual(t, utf8.RuneCountInString(stripSeparators(chunk)), 10)
	}
}

func TestSplitNoSeparators(t *testing.T) {
	c := New(Config{ChunkSize: 30, ChunkOverlap: 5})
	text := strings.Repeat("y", 100)

	chunks := c.Split(text)
	require.Greater(t, len(chunks), 1)
	joined := strings.Join(chunks, "")
	assert.Contains(t, joined, "yyyy")
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 30)
	}
}
