package vectorstore

import (
	"context"
	"math"
	"sort"
	"sync"

	apperrors "github.com/iron-dillo/cybersandbox/internal/pkg/errors"
)

// MemoryStore is an in-process Store for tests and single-user setups
// without postgres. Distances are cosine distances (1 - cosine similarity)
// so both implementations rank identically.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	sources map[string]SourceRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		sources: make(map[string]SourceRecord),
	}
}

func (s *MemoryStore) Upsert(ctx context.Context, docID string, records []Record, source SourceRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range s.records {
		if record.DocID == docID {
			delete(s.records, id)
		}
	}
	for _, record := range records {
		s.records[record.ID] = record
	}
	s.sources[docID] = source
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, embedding []float32, n int) ([]Candidate, error) {
	_ = ctx
	if n < 1 {
		return nil, apperrors.ErrInvalid
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]Candidate, 0, len(s.records))
	for _, record := range s.records {
		candidates = append(candidates, Candidate{
			ID:       record.ID,
			DocID:    record.DocID,
			Distance: cosineDistance(embedding, record.Embedding),
			Document: record.Document,
			Metadata: record.Metadata,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Distance != candidates[j].Distance {
			return candidates[i].Distance < candidates[j].Distance
		}
		return candidates[i].ID < candidates[j].ID
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates, nil
}

func (s *MemoryStore) GetSource(ctx context.Context, docID string) (*SourceRecord, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[docID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &src, nil
}

func (s *MemoryStore) DeleteDoc(ctx context.Context, docID string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, record := range s.records {
		if record.DocID == docID {
			delete(s.records, id)
		}
	}
	delete(s.sources, docID)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// Len reports the number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

var _ Store = (*MemoryStore)(nil)
