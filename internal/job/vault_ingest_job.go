package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/iron-dillo/cybersandbox/internal/chunker"
	"github.com/iron-dillo/cybersandbox/internal/service"
	"github.com/iron-dillo/cybersandbox/internal/vault"
)

// VaultIngestJob periodically sweeps the document vault into the vector
// index. Unchanged documents are skipped by the ingest service, so the sweep
// is cheap when nothing moved.
type VaultIngestJob struct {
	ingest *service.IngestService
	source vault.Source
	mode   chunker.Mode
}

func NewVaultIngestJob(ingest *service.IngestService, source vault.Source, mode chunker.Mode) *VaultIngestJob {
	return &VaultIngestJob{ingest: ingest, source: source, mode: mode}
}

func (j *VaultIngestJob) Name() string {
	return "vault_ingest"
}

func (j *VaultIngestJob) Run(ctx context.Context) error {
	if j.ingest == nil || j.source == nil {
		return nil
	}
	summaries, failures := j.ingest.IngestVault(ctx, j.source, j.mode)
	logger := logutil.GetLogger(ctx)
	for _, failure := range failures {
		logger.Warn("vault document failed", zap.String("doc_id", failure.DocID), zap.Error(failure.Err))
	}
	logger.Info("vault sweep done", zap.Int("ingested", len(summaries)), zap.Int("failed", len(failures)))
	return nil
}
