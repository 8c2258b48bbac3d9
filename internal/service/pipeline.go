// Package service composes the pipeline: Loader -> Splitter ->
// Embedder -> IndexStore on the ingestion path, and the query engine
// on the retrieval path.
package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"rag-agent/internal/domain"
)

// upsertBatchSize keeps individual upsert payloads under the
// service-side request limits.
const upsertBatchSize = 100

// Pipeline owns one explicitly constructed set of collaborators.
// Everything is injected; there is no package-level state.
type Pipeline struct {
	loader    domain.Loader
	splitter  domain.Splitter
	embedder  domain.Embedder
	store     domain.IndexStore
	metric    string
	dimension int
	log       *slog.Logger
}

// Config wires a Pipeline. Dimension is the index dimension used when
// the embedder cannot report one before the first call; the
// embedder's own dimension wins when known.
type Config struct {
	Loader    domain.Loader
	Splitter  domain.Splitter
	Embedder  domain.Embedder
	Store     domain.IndexStore
	Metric    string
	Dimension int
	Logger    *slog.Logger
}

// New builds a Pipeline from its collaborators.
func New(cfg Config) *Pipeline {
	if cfg.Metric == "" {
		cfg.Metric = "cosine"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		loader:    cfg.Loader,
		splitter:  cfg.Splitter,
		embedder:  cfg.Embedder,
		store:     cfg.Store,
		metric:    cfg.Metric,
		dimension: cfg.Dimension,
		log:       cfg.Logger,
	}
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Documents int
	Chunks    int
	Upserted  int
}

// Ingest loads the given files, splits them into chunks, embeds each
// chunk and upserts the records into the index. With overwrite the
// existing index is destroyed and recreated first, discarding all
// previously stored records.
func (p *Pipeline) Ingest(ctx context.Context, paths []string, overwrite bool) (IngestStats, error) {
	var stats IngestStats

	docs, err := p.loader.Load(paths)
	if err != nil {
		return stats, err
	}
	if len(docs) == 0 {
		return stats, fmt.Errorf("no documents loaded from %d path(s)", len(paths))
	}
	stats.Documents = len(docs)

	chunks := p.splitter.Split(docs)
	if len(chunks) == 0 {
		return stats, fmt.Errorf("no chunks produced from %d document(s)", len(docs))
	}
	stats.Chunks = len(chunks)
	p.log.Info("split documents", "documents", len(docs), "chunks", len(chunks))

	corpus := make([]string, len(chunks))
	for i, c := range chunks {
		corpus[i] = c.Text
	}
	if err := p.embedder.Prepare(corpus); err != nil {
		return stats, fmt.Errorf("prepare embedder: %w", err)
	}
	dimension := p.embedder.Dimension()
	if dimension == 0 {
		dimension = p.dimension
	}
	if dimension <= 0 {
		return stats, domain.NewConfigError("dimension", "embedding dimension is unknown; configure index.dimension")
	}

	if overwrite {
		if err := p.store.DestroyIndex(ctx); err != nil && !errors.Is(err, domain.ErrIndexNotFound) {
			return stats, fmt.Errorf("destroy index: %w", err)
		}
		p.log.Info("overwrite requested, destroyed existing index", "index", p.store.IndexName())
	}
	if err := p.store.EnsureIndex(ctx, dimension, p.metric); err != nil {
		return stats, fmt.Errorf("ensure index: %w", err)
	}

	for start := 0; start < len(chunks); start += upsertBatchSize {
		end := start + upsertBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		records := make([]domain.IndexRecord, 0, end-start)
		for _, c := range chunks[start:end] {
			vec, err := p.embedder.Embed(ctx, c.Text)
			if err != nil {
				return stats, fmt.Errorf("embed chunk %s@%d: %w", c.SourcePath, c.StartIndex, err)
			}
			records = append(records, domain.IndexRecord{
				ID:       recordID(c),
				Vector:   vec,
				Metadata: recordMetadata(c),
			})
		}
		if err := p.store.Upsert(ctx, records); err != nil {
			return stats, fmt.Errorf("upsert batch at %d: %w", start, err)
		}
		stats.Upserted += len(records)
		p.log.Debug("upserted batch", "from", start, "count", len(records))
	}

	p.log.Info("ingestion complete", "index", p.store.IndexName(), "chunks", stats.Upserted)
	return stats, nil
}

// Query embeds the query text and runs a top-k similarity search.
// When nothing is returned, or the single best score misses the
// threshold, the whole result set is discarded and an empty result is
// returned: an explicit no-match signal, not an error.
func (p *Pipeline) Query(ctx context.Context, text string, threshold float64, k int) ([]domain.QueryResult, error) {
	if k <= 0 {
		k = 3
	}
	vec, err := p.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := p.store.Query(ctx, vec, k, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	best := results[0].Score
	for _, r := range results[1:] {
		if r.Score > best {
			best = r.Score
		}
	}
	// Only the best score is checked against the threshold; if it
	// misses, every result is dropped. Lower-ranked results are never
	// filtered individually.
	if best < threshold {
		p.log.Info("no results above threshold", "best", best, "threshold", threshold)
		return nil, nil
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Stats reports the backing index's record count and dimension.
func (p *Pipeline) Stats(ctx context.Context) (domain.IndexStats, error) {
	return p.store.Stats(ctx)
}

// recordID derives a stable ID from the chunk's provenance, so
// re-ingesting the same file overwrites records instead of
// duplicating them.
func recordID(c domain.Chunk) string {
	h := sha1.Sum([]byte(c.SourcePath + "#" + strconv.Itoa(c.Page)))
	return hex.EncodeToString(h[:8]) + ":" + strconv.Itoa(c.StartIndex)
}

func recordMetadata(c domain.Chunk) map[string]string {
	md := map[string]string{
		domain.MetaText:       c.Text,
		domain.MetaSourcePath: c.SourcePath,
		domain.MetaStartIndex: strconv.Itoa(c.StartIndex),
	}
	if c.Page > 0 {
		md[domain.MetaPage] = strconv.Itoa(c.Page)
	}
	return md
}
