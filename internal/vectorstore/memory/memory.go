// Package memory is a brute-force cosine-similarity index behind the
// same IndexStore contract as the remote client. It backs offline
// mode and deterministic tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"rag-agent/internal/domain"
)

type record struct {
	vector   []float32
	metadata map[string]string
}

// Store keeps records in process memory, keyed by record ID.
type Store struct {
	mu        sync.RWMutex
	name      string
	dimension int
	metric    string
	exists    bool
	records   map[string]record
	order     []string
}

// NewStore creates an empty store bound to the given index name. The
// index itself does not exist until EnsureIndex.
func NewStore(name string) *Store {
	return &Store{name: name, records: make(map[string]record)}
}

// IndexName returns the name this store is bound to.
func (s *Store) IndexName() string { return s.name }

// EnsureIndex creates the index if absent. A second call with the
// same parameters is a no-op; a different dimension against an
// existing index is a configuration error.
func (s *Store) EnsureIndex(_ context.Context, dimension int, metric string) error {
	if dimension <= 0 {
		return domain.NewConfigError("dimension", fmt.Sprintf("invalid dimension %d", dimension))
	}
	if metric == "" {
		metric = "cosine"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exists {
		if s.dimension != dimension {
			return fmt.Errorf("%w: index has %d, requested %d", domain.ErrDimensionMismatch, s.dimension, dimension)
		}
		return nil
	}
	s.dimension = dimension
	s.metric = metric
	s.exists = true
	s.records = make(map[string]record)
	s.order = nil
	return nil
}

// DestroyIndex drops the index and all records.
func (s *Store) DestroyIndex(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return fmt.Errorf("destroy %q: %w", s.name, domain.ErrIndexNotFound)
	}
	s.exists = false
	s.records = make(map[string]record)
	s.order = nil
	return nil
}

// Upsert writes records, overwriting entries that share an ID.
func (s *Store) Upsert(_ context.Context, records []domain.IndexRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return fmt.Errorf("upsert into %q: %w", s.name, domain.ErrIndexNotFound)
	}
	for _, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d, index has %d", domain.ErrDimensionMismatch, r.ID, len(r.Vector), s.dimension)
		}
	}
	for _, r := range records {
		if _, ok := s.records[r.ID]; !ok {
			s.order = append(s.order, r.ID)
		}
		s.records[r.ID] = record{vector: r.Vector, metadata: r.Metadata}
	}
	return nil
}

// Delete removes records by ID; unknown IDs are ignored.
func (s *Store) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exists {
		return fmt.Errorf("delete from %q: %w", s.name, domain.ErrIndexNotFound)
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			drop[id] = struct{}{}
		}
	}
	if len(drop) > 0 {
		kept := s.order[:0]
		for _, id := range s.order {
			if _, gone := drop[id]; !gone {
				kept = append(kept, id)
			}
		}
		s.order = kept
	}
	return nil
}

// Query scores every record by cosine similarity and returns the topK
// best, optionally restricted by an exact-match metadata filter.
// Querying an empty index returns zero results, not an error.
func (s *Store) Query(_ context.Context, vector []float32, topK int, filter map[string]string) ([]domain.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return nil, fmt.Errorf("query %q: %w", s.name, domain.ErrIndexNotFound)
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query vector has %d, index has %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 3
	}
	results := make([]domain.QueryResult, 0, len(s.records))
	for _, id := range s.order {
		rec := s.records[id]
		if !matches(rec.metadata, filter) {
			continue
		}
		results = append(results, domain.QueryResult{
			ID:         id,
			Text:       rec.metadata[domain.MetaText],
			SourcePath: rec.metadata[domain.MetaSourcePath],
			Score:      cosine(vector, rec.vector),
			Metadata:   rec.metadata,
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Stats reports the record count and configured dimension.
func (s *Store) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return domain.IndexStats{}, fmt.Errorf("stats for %q: %w", s.name, domain.ErrIndexNotFound)
	}
	return domain.IndexStats{VectorCount: len(s.records), Dimension: s.dimension}, nil
}

func matches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
