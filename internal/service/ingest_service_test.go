package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iron-dillo/cybersandbox/internal/chunker"
	apperrors "github.com/iron-dillo/cybersandbox/internal/pkg/errors"
	"github.com/iron-dillo/cybersandbox/internal/service"
	"github.com/iron-dillo/cybersandbox/internal/vectorstore"
)

// lengthEmbedder returns deterministic two-dimensional vectors derived from
// the text length, which is enough structure for ranking tests.
type lengthEmbedder struct {
	calls int
	fail  error
}

func (e *lengthEmbedder) Embed(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	e.calls++
	if e.fail != nil {
		return nil, e.fail
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), 1}
	}
	return vectors, nil
}

func (e *lengthEmbedder) ModelName() string { return "length-test" }

// mapSource is an in-memory vault for batch ingest tests.
type mapSource struct {
	names []string
	docs  map[string][]byte
	fail  map[string]error
}

func (s *mapSource) List(ctx context.Context) ([]string, error) {
	return s.names, nil
}

func (s *mapSource) Read(ctx context.Context, name string) ([]byte, error) {
	if err := s.fail[name]; err != nil {
		return nil, err
	}
	raw, ok := s.docs[name]
	if !ok {
		return nil, fmt.Errorf("no such document: %s", name)
	}
	return raw, nil
}

func newIngest(store vectorstore.Store) (*service.IngestService, *lengthEmbedder) {
	embedder := &lengthEmbedder{}
	svc := service.NewIngestService(embedder, store, chunker.Options{Size: 1000, Overlap: 150, Mode: chunker.ModeFixed})
	return svc, embedder
}

func TestIngestDocumentExtractsThreatProfile(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	svc, _ := newIngest(store)

	raw := []byte("Ransomware campaign references CVE-2024-3400 and initial access via phishing")
	summary, err := svc.IngestDocument(ctx, "intel.txt", raw, chunker.ModeParagraph)
	require.NoError(t, err)
	require.Equal(t, "intel.txt", summary.DocID)
	require.Equal(t, 1, summary.Chunks)
	require.Equal(t, "paragraph", summary.ChunkMode)
	require.Contains(t, summary.ThreatTags, "ransomware")
	require.Contains(t, summary.MitreTactics, "initial_access")
	require.Contains(t, summary.IntelIndicators, "CVE-2024-3400")
	require.NotEmpty(t, summary.Hash)
	require.Equal(t, 1, store.Len())

	src, err := store.GetSource(ctx, "intel.txt")
	require.NoError(t, err)
	require.Equal(t, summary.Hash, src.Hash)
	require.Equal(t, "paragraph", src.ChunkMode)
}

func TestIngestDocumentChunkMetadata(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	svc, _ := newIngest(store)

	raw := []byte("ransomware note from analyst@example.com\n\nsecond paragraph about phishing")
	_, err := svc.IngestDocument(ctx, "note.md", raw, chunker.ModeParagraph)
	require.NoError(t, err)

	candidates, err := store.Query(ctx, []float32{10, 1}, 10)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	ids := []string{candidates[0].ID, candidates[1].ID}
	require.ElementsMatch(t, []string{"note.md:0", "note.md:1"}, ids)
	for _, c := range candidates {
		require.Equal(t, "note.md", c.Metadata.DocID)
		require.NotEmpty(t, c.Metadata.Hash)
		require.NotContains(t, c.Metadata.SanitizedPreview, "analyst@example.com")
	}
}

func TestIngestDocumentRequiresDocID(t *testing.T) {
	svc, _ := newIngest(vectorstore.NewMemoryStore())
	_, err := svc.IngestDocument(context.Background(), "   ", []byte("text"), "")
	require.True(t, apperrors.IsInvalid(err))
}

func TestIngestDocumentEmbedFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	embedder := &lengthEmbedder{fail: errors.New("provider down")}
	svc := service.NewIngestService(embedder, store, chunker.Options{Size: 100, Overlap: 10})

	_, err := svc.IngestDocument(ctx, "doc", []byte("some malware text"), "")
	require.Error(t, err)
	require.Zero(t, store.Len())
	_, err = store.GetSource(ctx, "doc")
	require.True(t, apperrors.IsNotFound(err))
}

func TestIngestDocumentToleratesInvalidUTF8(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	svc, _ := newIngest(store)

	raw := append([]byte("ransomware "), 0xff, 0xfe)
	raw = append(raw, []byte(" report")...)
	summary, err := svc.IngestDocument(ctx, "binary.txt", raw, "")
	require.NoError(t, err)
	require.Equal(t, 1, summary.Chunks)
	require.Contains(t, summary.ThreatTags, "ransomware")
}

func TestIngestDocumentReingestReplacesChunks(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	svc, _ := newIngest(store)

	long := []byte("first paragraph\n\nsecond paragraph\n\nthird paragraph")
	_, err := svc.IngestDocument(ctx, "doc", long, chunker.ModeParagraph)
	require.NoError(t, err)
	require.Equal(t, 3, store.Len())

	short := []byte("only paragraph left")
	summary, err := svc.IngestDocument(ctx, "doc", short, chunker.ModeParagraph)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Chunks)
	require.Equal(t, 1, store.Len())
}

func TestIngestVaultIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	svc, _ := newIngest(store)

	src := &mapSource{
		names: []string{"good.txt", "broken.txt", "also-good.txt"},
		docs: map[string][]byte{
			"good.txt":      []byte("phishing report"),
			"also-good.txt": []byte("malware triage"),
		},
		fail: map[string]error{"broken.txt": errors.New("read timeout")},
	}

	summaries, failures := svc.IngestVault(ctx, src, "")
	require.Len(t, summaries, 2)
	require.Len(t, failures, 1)
	require.Equal(t, "broken.txt", failures[0].DocID)
	require.Equal(t, 2, store.Len())
}

func TestIngestVaultSkipsUnchangedDocuments(t *testing.T) {
	ctx := context.Background()
	store := vectorstore.NewMemoryStore()
	svc, embedder := newIngest(store)

	src := &mapSource{
		names: []string{"a.txt"},
		docs:  map[string][]byte{"a.txt": []byte("stable content")},
	}

	summaries, failures := svc.IngestVault(ctx, src, "")
	require.Len(t, summaries, 1)
	require.Empty(t, failures)
	callsAfterFirst := embedder.calls

	// Same bytes, same mode: nothing to do.
	summaries, failures = svc.IngestVault(ctx, src, "")
	require.Empty(t, summaries)
	require.Empty(t, failures)
	require.Equal(t, callsAfterFirst, embedder.calls)

	// Changed bytes trigger a re-ingest.
	src.docs["a.txt"] = []byte("updated content")
	summaries, _ = svc.IngestVault(ctx, src, "")
	require.Len(t, summaries, 1)
}
