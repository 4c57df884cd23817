package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloo-solutions/knowbase/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingAdder captures every ingested document.
type recordingAdder struct {
	inputs []AddInput
	err    error
}

func (r *recordingAdder) Add(ctx context.Context, input AddInput) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.inputs = append(r.inputs, input)
	return fmt.Sprintf("%s_%06d", input.Domain, len(r.inputs)), nil
}

func writePackFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testPack(t *testing.T) ContentPack {
	t.Helper()
	dir := t.TempDir()
	writePackFile(t, dir, "troubleshooting/broker-startup-error.md",
		"# Broker fails to start\n\nCheck disk space and the store path permissions.")
	writePackFile(t, dir, "configuration/tls-setup.md",
		"# Enabling TLS\n\nGenerate certificates and point the broker at them.")
	writePackFile(t, dir, "notes.txt", "not markdown, must be ignored")
	return ContentPack{Domain: "rocketmq", Version: "v1", Dir: dir}
}

func TestInitializer_EnsureInitialized(t *testing.T) {
	ctx := context.Background()

	t.Run("first run ingests every markdown document", func(t *testing.T) {
		pack := testPack(t)
		adder := &recordingAdder{}
		status := new(MockStatusStore)
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		init := NewInitializerWithClock(adder, status, collections, index, nil, fixedClock)

		status.On("Get", mock.Anything, "rocketmq").Return(nil, nil)
		collections.On("GetOrCreate", mock.Anything, "rocketmq").Return(testCollection("rocketmq"), nil)
		index.On("Count", mock.Anything, "knowledge_rocketmq").Return(5, nil)
		status.On("Put", mock.Anything, domain.InitStatus{
			Domain:        "rocketmq",
			Version:       "v1",
			InitializedAt: fixedTime,
			ItemCount:     2,
			ChunkCount:    5,
			LastCheck:     fixedTime,
		}).Return(nil)

		err := init.EnsureInitialized(ctx, pack)

		require.NoError(t, err)
		require.Len(t, adder.inputs, 2)

		byTitle := make(map[string]AddInput)
		for _, input := range adder.inputs {
			byTitle[input.Title] = input
		}

		ts, ok := byTitle["Broker fails to start"]
		require.True(t, ok)
		assert.Equal(t, "rocketmq", ts.Domain)
		assert.Equal(t, domain.CategoryTroubleshooting, ts.Category)
		assert.Equal(t, 3, ts.Priority)
		assert.Equal(t, domain.SourceSystem, ts.Source)
		assert.Contains(t, ts.Tags, "troubleshooting")
		assert.Contains(t, ts.Tags, "broker")
		assert.Contains(t, ts.Tags, "startup")
		assert.Contains(t, ts.Tags, "error")
		require.NotNil(t, ts.FilePath)
		assert.Equal(t, "broker-startup-error.md", filepath.Base(*ts.FilePath))

		cfg, ok := byTitle["Enabling TLS"]
		require.True(t, ok)
		assert.Equal(t, domain.CategoryConfiguration, cfg.Category)
		assert.Equal(t, 2, cfg.Priority)
		assert.Contains(t, cfg.Tags, "configuration")
		assert.Contains(t, cfg.Tags, "tls")
		assert.Contains(t, cfg.Tags, "setup")

		status.AssertExpectations(t)
	})

	t.Run("second run only touches last_check", func(t *testing.T) {
		pack := testPack(t)
		adder := &recordingAdder{}
		status := new(MockStatusStore)
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		init := NewInitializerWithClock(adder, status, collections, index, nil, fixedClock)

		status.On("Get", mock.Anything, "rocketmq").Return(&domain.InitStatus{
			Domain:        "rocketmq",
			Version:       "v1",
			InitializedAt: fixedTime,
			ItemCount:     2,
			ChunkCount:    5,
			LastCheck:     fixedTime,
		}, nil)
		status.On("Touch", mock.Anything, "rocketmq", fixedTime).Return(nil)

		err := init.EnsureInitialized(ctx, pack)

		require.NoError(t, err)
		assert.Empty(t, adder.inputs)
		status.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
		index.AssertNotCalled(t, "DeleteByCollection", mock.Anything, mock.Anything)
		status.AssertExpectations(t)
	})

	t.Run("version mismatch clears the domain and re-ingests once", func(t *testing.T) {
		pack := testPack(t)
		pack.Version = "v2"
		adder := &recordingAdder{}
		status := new(MockStatusStore)
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		init := NewInitializerWithClock(adder, status, collections, index, nil, fixedClock)

		status.On("Get", mock.Anything, "rocketmq").Return(&domain.InitStatus{
			Domain:  "rocketmq",
			Version: "v1",
		}, nil)
		collections.On("GetOrCreate", mock.Anything, "rocketmq").Return(testCollection("rocketmq"), nil)
		index.On("DeleteByCollection", mock.Anything, "knowledge_rocketmq").Return(nil)
		status.On("Delete", mock.Anything, "rocketmq").Return(nil)
		index.On("Count", mock.Anything, "knowledge_rocketmq").Return(5, nil)
		status.On("Put", mock.Anything, mock.MatchedBy(func(s domain.InitStatus) bool {
			return s.Version == "v2" && s.ItemCount == 2
		})).Return(nil)

		err := init.EnsureInitialized(ctx, pack)

		require.NoError(t, err)
		assert.Len(t, adder.inputs, 2)
		index.AssertExpectations(t)
		status.AssertExpectations(t)
	})

	t.Run("missing pack directory surfaces an error", func(t *testing.T) {
		adder := &recordingAdder{}
		status := new(MockStatusStore)
		collections := new(MockCollectionStore)
		index := new(MockChunkIndex)
		init := NewInitializerWithClock(adder, status, collections, index, nil, fixedClock)

		status.On("Get", mock.Anything, "rocketmq").Return(nil, nil)

		err := init.EnsureInitialized(ctx, ContentPack{Domain: "rocketmq", Version: "v1", Dir: "/nonexistent/pack"})

		assert.Error(t, err)
		assert.Empty(t, adder.inputs)
	})

	t.Run("empty domain rejected", func(t *testing.T) {
		init := NewInitializer(&recordingAdder{}, new(MockStatusStore), new(MockCollectionStore), new(MockChunkIndex), nil)

		err := init.EnsureInitialized(ctx, ContentPack{Version: "v1", Dir: "somewhere"})

		assert.ErrorIs(t, err, domain.ErrEmptyDomain)
	})
}

func TestInitializer_ForceReinitialize(t *testing.T) {
	pack := testPack(t)
	adder := &recordingAdder{}
	status := new(MockStatusStore)
	collections := new(MockCollectionStore)
	index := new(MockChunkIndex)
	init := NewInitializerWithClock(adder, status, collections, index, nil, fixedClock)

	collections.On("GetOrCreate", mock.Anything, "rocketmq").Return(testCollection("rocketmq"), nil)
	index.On("DeleteByCollection", mock.Anything, "knowledge_rocketmq").Return(nil)
	status.On("Delete", mock.Anything, "rocketmq").Return(nil)
	index.On("Count", mock.Anything, "knowledge_rocketmq").Return(5, nil)
	status.On("Put", mock.Anything, mock.Anything).Return(nil)

	err := init.ForceReinitialize(context.Background(), pack)

	require.NoError(t, err)
	assert.Len(t, adder.inputs, 2)
	// the recorded version is never consulted on a forced run
	status.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	index.AssertExpectations(t)
}

func TestDocumentTitle(t *testing.T) {
	t.Run("first level-one heading wins", func(t *testing.T) {
		title := documentTitle("/packs/a.md", "intro\n# Real Title\n## Sub")
		assert.Equal(t, "Real Title", title)
	})

	t.Run("falls back to the file stem", func(t *testing.T) {
		title := documentTitle("/packs/consumer-lag.md", "no headings here")
		assert.Equal(t, "consumer-lag", title)
	})
}

func TestDocumentTags(t *testing.T) {
	tags := documentTags("/packs/troubleshooting/broker-startup-error.md")

	assert.Contains(t, tags, "troubleshooting")
	assert.Contains(t, tags, "broker")
	assert.Contains(t, tags, "startup")
	assert.Contains(t, tags, "error")
	for _, tag := range tags {
		assert.Greater(t, len([]rune(tag)), 2)
	}
}
