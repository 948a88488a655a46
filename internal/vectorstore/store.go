// Package vectorstore abstracts the vector index the retrieval engine reads
// and the ingestion pipeline writes. The index is the system of record for
// chunks, their embeddings, and their metadata.
package vectorstore

import (
	"context"

	"github.com/iron-dillo/cybersandbox/internal/model"
)

// Record is one chunk entry as written at upsert time.
type Record struct {
	ID        string
	DocID     string
	Document  string
	Embedding []float32
	Metadata  model.ChunkMetadata
}

// Candidate is one nearest-neighbor answer. Stores return candidates in
// ascending distance order.
type Candidate struct {
	ID       string
	DocID    string
	Distance float64
	Document string
	Metadata model.ChunkMetadata
}

// SourceRecord tracks an ingested document for change detection.
type SourceRecord struct {
	DocID      string
	Hash       string
	ChunkCount int
	ChunkMode  string
	IngestedAt int64
}

// Store is the narrow contract against the vector index. Implementations
// must make Upsert atomic per document: either every chunk of the document
// is written or none.
type Store interface {
	Upsert(ctx context.Context, docID string, records []Record, source SourceRecord) error
	Query(ctx context.Context, embedding []float32, n int) ([]Candidate, error)
	GetSource(ctx context.Context, docID string) (*SourceRecord, error)
	DeleteDoc(ctx context.Context, docID string) error
	Close() error
}
