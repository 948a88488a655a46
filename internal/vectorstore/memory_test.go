package vectorstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iron-dillo/cybersandbox/internal/model"
	apperrors "github.com/iron-dillo/cybersandbox/internal/pkg/errors"
	"github.com/iron-dillo/cybersandbox/internal/vectorstore"
)

func record(docID string, index int, embedding []float32) vectorstore.Record {
	return vectorstore.Record{
		ID:        model.ChunkID(docID, index),
		DocID:     docID,
		Document:  "chunk body",
		Embedding: embedding,
		Metadata:  model.ChunkMetadata{DocID: docID, ChunkIndex: index},
	}
}

func TestMemoryStoreQueryOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()

	err := store.Upsert(ctx, "docA", []vectorstore.Record{
		record("docA", 0, []float32{1, 0}),
		record("docA", 1, []float32{0, 1}),
		record("docA", 2, []float32{1, 0.2}),
	}, vectorstore.SourceRecord{DocID: "docA"})
	require.NoError(t, err)

	candidates, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	require.Equal(t, "docA:0", candidates[0].ID)
	require.Equal(t, "docA:2", candidates[1].ID)
	require.Equal(t, "docA:1", candidates[2].ID)
	for i := 1; i < len(candidates); i++ {
		require.GreaterOrEqual(t, candidates[i].Distance, candidates[i-1].Distance)
	}
}

func TestMemoryStoreQueryHonorsLimit(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	require.NoError(t, store.Upsert(ctx, "docA", []vectorstore.Record{
		record("docA", 0, []float32{1, 0}),
		record("docA", 1, []float32{0, 1}),
	}, vectorstore.SourceRecord{DocID: "docA"}))

	candidates, err := store.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	_, err = store.Query(ctx, []float32{1, 0}, 0)
	require.True(t, apperrors.IsInvalid(err))
}

func TestMemoryStoreUpsertReplacesDocument(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "docA", []vectorstore.Record{
		record("docA", 0, []float32{1, 0}),
		record("docA", 1, []float32{0, 1}),
		record("docA", 2, []float32{1, 1}),
	}, vectorstore.SourceRecord{DocID: "docA", ChunkCount: 3}))
	require.Equal(t, 3, store.Len())

	// Re-ingest with fewer chunks drops the stale tail.
	require.NoError(t, store.Upsert(ctx, "docA", []vectorstore.Record{
		record("docA", 0, []float32{1, 0}),
	}, vectorstore.SourceRecord{DocID: "docA", ChunkCount: 1}))
	require.Equal(t, 1, store.Len())

	candidates, err := store.Query(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "docA:0", candidates[0].ID)
}

func TestMemoryStoreUpsertLeavesOtherDocsAlone(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "docA", []vectorstore.Record{record("docA", 0, []float32{1, 0})}, vectorstore.SourceRecord{DocID: "docA"}))
	require.NoError(t, store.Upsert(ctx, "docB", []vectorstore.Record{record("docB", 0, []float32{0, 1})}, vectorstore.SourceRecord{DocID: "docB"}))
	require.Equal(t, 2, store.Len())

	require.NoError(t, store.Upsert(ctx, "docA", []vectorstore.Record{record("docA", 0, []float32{1, 1})}, vectorstore.SourceRecord{DocID: "docA"}))
	require.Equal(t, 2, store.Len())
}

func TestMemoryStoreSourceRecords(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()

	_, err := store.GetSource(ctx, "docA")
	require.True(t, apperrors.IsNotFound(err))

	want := vectorstore.SourceRecord{DocID: "docA", Hash: "abc123", ChunkCount: 2, ChunkMode: "paragraph", IngestedAt: 1700000000}
	require.NoError(t, store.Upsert(ctx, "docA", []vectorstore.Record{
		record("docA", 0, []float32{1, 0}),
		record("docA", 1, []float32{0, 1}),
	}, want))

	got, err := store.GetSource(ctx, "docA")
	require.NoError(t, err)
	require.Equal(t, want, *got)
}

func TestMemoryStoreDeleteDoc(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()

	require.NoError(t, store.Upsert(ctx, "docA", []vectorstore.Record{record("docA", 0, []float32{1, 0})}, vectorstore.SourceRecord{DocID: "docA"}))
	require.NoError(t, store.DeleteDoc(ctx, "docA"))
	require.Zero(t, store.Len())

	_, err := store.GetSource(ctx, "docA")
	require.True(t, apperrors.IsNotFound(err))
}
