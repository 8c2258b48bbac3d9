package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-agent/internal/domain"
	"rag-agent/internal/embedding/tfidf"
	"rag-agent/internal/loader"
	"rag-agent/internal/splitter"
	"rag-agent/internal/vectorstore/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// newOfflinePipeline wires the real loader and splitter with the
// TF-IDF embedder and the in-memory store: the full pipeline without
// any network dependency.
func newOfflinePipeline(t *testing.T) (*Pipeline, *memory.Store) {
	t.Helper()
	store := memory.NewStore("test-index")
	p := New(Config{
		Loader:   loader.New(testLogger()),
		Splitter: splitter.NewRecursive(500, 100),
		Embedder: tfidf.NewEmbedder(),
		Store:    store,
		Metric:   "cosine",
		Logger:   testLogger(),
	})
	return p, store
}

func TestIngestAndQueryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.txt", "The zephyr carried a strange quokka paradox."),
		writeFile(t, dir, "b.txt", "Database replication lag causes stale reads."),
		writeFile(t, dir, "c.txt", "Sourdough bread needs a long fermentation."),
	}
	p, _ := newOfflinePipeline(t)

	stats, err := p.Ingest(context.Background(), paths, false)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Documents)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 3, stats.Upserted)

	results, err := p.Query(context.Background(), "The zephyr carried a strange quokka paradox.", 0.7, 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].SourcePath, "a.txt")
	assert.Greater(t, results[0].Score, 0.7)
}

func TestQueryUnreachableThresholdReturnsEmptySuccess(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "a.txt", "The zephyr carried a strange quokka paradox.")}
	p, _ := newOfflinePipeline(t)
	_, err := p.Ingest(context.Background(), paths, false)
	require.NoError(t, err)

	results, err := p.Query(context.Background(), "The zephyr carried a strange quokka paradox.", 1.1, 3)
	require.NoError(t, err, "a threshold miss is success, not an error")
	assert.Empty(t, results)
}

func TestQueryEmptyIndexReturnsEmptySuccess(t *testing.T) {
	store := memory.NewStore("test-index")
	require.NoError(t, store.EnsureIndex(context.Background(), 2, "cosine"))
	p := New(Config{
		Embedder: &stubEmbedder{dim: 2, vectors: map[string][]float32{"anything": {1, 0}}},
		Store:    store,
		Logger:   testLogger(),
	})

	results, err := p.Query(context.Background(), "anything", 0.7, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestOverwriteDiscardsPreviousContent(t *testing.T) {
	dir := t.TempDir()
	oldFile := writeFile(t, dir, "old.txt", "The zephyr carried a strange quokka paradox.")
	newFile := writeFile(t, dir, "new.txt", "Database replication lag causes stale reads.")
	p, store := newOfflinePipeline(t)

	_, err := p.Ingest(context.Background(), []string{oldFile}, false)
	require.NoError(t, err)

	_, err = p.Ingest(context.Background(), []string{newFile}, true)
	require.NoError(t, err)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount, "overwrite must leave only the new content")

	gone, err := p.Query(context.Background(), "zephyr quokka paradox", 0.5, 3)
	require.NoError(t, err)
	assert.Empty(t, gone, "old content must be unretrievable after overwrite")

	kept, err := p.Query(context.Background(), "Database replication lag causes stale reads.", 0.5, 3)
	require.NoError(t, err)
	require.NotEmpty(t, kept)
	assert.Contains(t, kept[0].SourcePath, "new.txt")
}

func TestReingestSameFilesDoesNotDuplicate(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeFile(t, dir, "a.txt", "The zephyr carried a strange quokka paradox.")}
	p, store := newOfflinePipeline(t)

	_, err := p.Ingest(context.Background(), paths, false)
	require.NoError(t, err)
	_, err = p.Ingest(context.Background(), paths, false)
	require.NoError(t, err)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount, "derived record IDs must overwrite, not duplicate")
}

func TestIngestUnsupportedFileIsConfigError(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.csv", "a,b,c")
	p, _ := newOfflinePipeline(t)

	_, err := p.Ingest(context.Background(), []string{path}, false)
	require.Error(t, err)
	assert.True(t, domain.IsConfig(err))
}

// TestThresholdChecksOnlyBestResult pins the engine's semantics: the
// threshold gates on the single best score, and once it passes, lower
// scoring results ride along unfiltered.
func TestThresholdChecksOnlyBestResult(t *testing.T) {
	c := context.Background()
	store := memory.NewStore("test-index")
	require.NoError(t, store.EnsureIndex(c, 2, "cosine"))
	require.NoError(t, store.Upsert(c, []domain.IndexRecord{
		{ID: "strong", Vector: []float32{0.8, 0.6}, Metadata: map[string]string{domain.MetaText: "strong"}},
		{ID: "weak", Vector: []float32{0.3, float32(math.Sqrt(0.91))}, Metadata: map[string]string{domain.MetaText: "weak"}},
	}))
	p := New(Config{
		Embedder: &stubEmbedder{dim: 2, vectors: map[string][]float32{"q": {1, 0}}},
		Store:    store,
		Logger:   testLogger(),
	})

	// Best cosine is 0.8; the weak result scores 0.3 but is kept
	// because only the best is compared to the threshold.
	results, err := p.Query(c, "q", 0.5, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "strong", results[0].ID)
	assert.Equal(t, "weak", results[1].ID)
	assert.Less(t, results[1].Score, 0.5)

	// Raise the threshold above the best score: everything is
	// discarded, including results that were previously returned.
	results, err = p.Query(c, "q", 0.9, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryTruncatesToTopK(t *testing.T) {
	c := context.Background()
	store := memory.NewStore("test-index")
	require.NoError(t, store.EnsureIndex(c, 2, "cosine"))
	var records []domain.IndexRecord
	for i := 0; i < 5; i++ {
		records = append(records, domain.IndexRecord{
			ID:       fmt.Sprintf("r%d", i),
			Vector:   []float32{1, float32(i) * 0.1},
			Metadata: map[string]string{},
		})
	}
	require.NoError(t, store.Upsert(c, records))
	p := New(Config{
		Embedder: &stubEmbedder{dim: 2, vectors: map[string][]float32{"q": {1, 0}}},
		Store:    store,
		Logger:   testLogger(),
	})

	results, err := p.Query(c, "q", 0.1, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "r0", results[0].ID)
}

func TestRecordIDStableAndPageAware(t *testing.T) {
	a := domain.Chunk{SourcePath: "doc.pdf", Page: 1, StartIndex: 0}
	b := domain.Chunk{SourcePath: "doc.pdf", Page: 2, StartIndex: 0}
	assert.Equal(t, recordID(a), recordID(a))
	assert.NotEqual(t, recordID(a), recordID(b), "same offset on different pages must not collide")
}

// stubEmbedder returns canned vectors keyed by input text.
type stubEmbedder struct {
	dim     int
	vectors map[string][]float32
}

func (s *stubEmbedder) Name() string                  { return "stub" }
func (s *stubEmbedder) Prepare(corpus []string) error { return nil }
func (s *stubEmbedder) Dimension() int                { return s.dim }

func (s *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec, ok := s.vectors[text]
	if !ok {
		return nil, fmt.Errorf("stub has no vector for %q", text)
	}
	return vec, nil
}
