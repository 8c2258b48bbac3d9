package domain

import "context"

// Loader reads raw files from disk into Documents, dispatching on
// file extension. A single unreadable file is skipped; an unsupported
// extension aborts the whole call.
type Loader interface {
	Load(paths []string) ([]Document, error)
}

// Splitter breaks Documents into overlapping chunks. Pure and
// deterministic: identical input yields identical output.
type Splitter interface {
	Split(docs []Document) []Chunk
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IndexStore manages the lifecycle of one named vector index and
// persists/retrieves IndexRecords. The index name is fixed at
// construction time.
type IndexStore interface {
	IndexName() string
	// EnsureIndex creates the index if absent. Idempotent when the
	// index already exists.
	EnsureIndex(ctx context.Context, dimension int, metric string) error
	// DestroyIndex deletes the index and everything in it. Destructive
	// and irreversible; confirmation belongs to the caller.
	DestroyIndex(ctx context.Context) error
	Upsert(ctx context.Context, records []IndexRecord) error
	Delete(ctx context.Context, ids []string) error
	// Query returns up to topK nearest records by the index's metric,
	// optionally restricted by an exact-match metadata filter.
	Query(ctx context.Context, vector []float32, topK int, filter map[string]string) ([]QueryResult, error)
	Stats(ctx context.Context) (IndexStats, error)
}
