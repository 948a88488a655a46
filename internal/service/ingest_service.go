package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/iron-dillo/cybersandbox/internal/ai"
	"github.com/iron-dillo/cybersandbox/internal/chunker"
	"github.com/iron-dillo/cybersandbox/internal/intel"
	"github.com/iron-dillo/cybersandbox/internal/model"
	apperrors "github.com/iron-dillo/cybersandbox/internal/pkg/errors"
	"github.com/iron-dillo/cybersandbox/internal/sanitize"
	"github.com/iron-dillo/cybersandbox/internal/vault"
	"github.com/iron-dillo/cybersandbox/internal/vectorstore"
)

const previewLimit = 280

// IngestService is the only writer to the vector index. One document per
// call; concurrent calls for distinct documents are safe, same-document
// races resolve last-writer-wins at the store.
type IngestService struct {
	embedder  ai.IEmbedder
	store     vectorstore.Store
	chunkOpts chunker.Options
}

func NewIngestService(embedder ai.IEmbedder, store vectorstore.Store, chunkOpts chunker.Options) *IngestService {
	return &IngestService{
		embedder:  embedder,
		store:     store,
		chunkOpts: chunkOpts,
	}
}

// IngestDocument decodes, chunks, profiles, embeds, and upserts one
// document. The upsert happens only after every chunk embedded successfully,
// so a provider failure never leaves a partially written document behind.
func (s *IngestService) IngestDocument(ctx context.Context, docID string, raw []byte, mode chunker.Mode) (*model.IngestSummary, error) {
	if strings.TrimSpace(docID) == "" {
		return nil, fmt.Errorf("%w: document id is required", apperrors.ErrInvalid)
	}
	logger := logutil.GetLogger(ctx).With(zap.String("doc_id", docID))

	// Best-effort decode: invalid byte sequences are dropped, never fatal.
	text := strings.ToValidUTF8(string(raw), "")

	opts := s.chunkOpts
	if mode != "" {
		opts.Mode = mode
	}
	chunks, err := chunker.Chunk(text, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalid, err)
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	for index, chunk := range chunks {
		profile := intel.Extract(chunk)
		records = append(records, vectorstore.Record{
			ID:       model.ChunkID(docID, index),
			DocID:    docID,
			Document: chunk,
			Metadata: model.ChunkMetadata{
				DocID:            docID,
				Source:           docID,
				ChunkIndex:       index,
				Hash:             hashText(chunk),
				ThreatTags:       profile.Tags,
				MitreTactics:     profile.Tactics,
				IntelIndicators:  profile.Indicators,
				SanitizedPreview: sanitize.Preview(chunk, previewLimit),
			},
		})
	}

	if len(chunks) > 0 {
		embeddings, err := s.embedder.Embed(ctx, chunks, ai.TaskTypeDocument)
		if err != nil {
			logger.Error("embedding failed, aborting ingest", zap.Error(err))
			return nil, err
		}
		for i := range records {
			records[i].Embedding = embeddings[i]
		}
	}

	// The document profile comes from a fresh full-text scan. A union of
	// chunk profiles would miss patterns split across a chunk boundary.
	docProfile := intel.Extract(text)
	docHash := hashText(text)

	source := vectorstore.SourceRecord{
		DocID:      docID,
		Hash:       docHash,
		ChunkCount: len(records),
		ChunkMode:  string(opts.Mode),
		IngestedAt: time.Now().Unix(),
	}
	if err := s.store.Upsert(ctx, docID, records, source); err != nil {
		logger.Error("vector store upsert failed", zap.Error(err))
		return nil, err
	}

	logger.Info("document ingested",
		zap.Int("chunks", len(records)),
		zap.String("chunk_mode", string(opts.Mode)),
		zap.Strings("threat_tags", docProfile.Tags),
	)
	return &model.IngestSummary{
		DocID:           docID,
		Chunks:          len(records),
		Hash:            docHash,
		ThreatTags:      docProfile.Tags,
		MitreTactics:    docProfile.Tactics,
		IntelIndicators: docProfile.Indicators,
		ChunkMode:       string(opts.Mode),
	}, nil
}

// DocError records the failure of one document inside a batch.
type DocError struct {
	DocID string
	Err   error
}

func (e DocError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.DocID, e.Err)
}

func (e DocError) Unwrap() error {
	return e.Err
}

// IngestVault ingests every document the source lists. One failing document
// does not abort the batch; unchanged documents (same content hash and chunk
// mode as the stored source record) are skipped.
func (s *IngestService) IngestVault(ctx context.Context, src vault.Source, mode chunker.Mode) ([]model.IngestSummary, []DocError) {
	logger := logutil.GetLogger(ctx)
	names, err := src.List(ctx)
	if err != nil {
		return nil, []DocError{{DocID: "", Err: err}}
	}

	var summaries []model.IngestSummary
	var failures []DocError
	for _, name := range names {
		if ctx.Err() != nil {
			failures = append(failures, DocError{DocID: name, Err: ctx.Err()})
			break
		}
		raw, err := src.Read(ctx, name)
		if err != nil {
			failures = append(failures, DocError{DocID: name, Err: err})
			continue
		}
		if s.unchanged(ctx, name, raw, mode) {
			logger.Debug("document unchanged, skipping", zap.String("doc_id", name))
			continue
		}
		summary, err := s.IngestDocument(ctx, name, raw, mode)
		if err != nil {
			failures = append(failures, DocError{DocID: name, Err: err})
			continue
		}
		summaries = append(summaries, *summary)
	}
	logger.Info("vault ingest finished",
		zap.Int("ingested", len(summaries)),
		zap.Int("failed", len(failures)),
		zap.Int("listed", len(names)),
	)
	return summaries, failures
}

func (s *IngestService) unchanged(ctx context.Context, docID string, raw []byte, mode chunker.Mode) bool {
	existing, err := s.store.GetSource(ctx, docID)
	if err != nil || existing == nil {
		return false
	}
	effective := s.chunkOpts.Mode
	if mode != "" {
		effective = mode
	}
	text := strings.ToValidUTF8(string(raw), "")
	return existing.Hash == hashText(text) && existing.ChunkMode == string(effective)
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
