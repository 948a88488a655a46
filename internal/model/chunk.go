package model

import "fmt"

// ChunkID is the stable identifier of a chunk inside the vector index.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s:%d", docID, index)
}

// ChunkMetadata is the per-chunk record attached at upsert time. Tag,
// tactic, and indicator fields are derived deterministically from the chunk
// text, so re-ingesting identical text yields identical metadata.
type ChunkMetadata struct {
	DocID            string   `json:"doc_id"`
	Source           string   `json:"source"`
	ChunkIndex       int      `json:"chunk_index"`
	Hash             string   `json:"hash"`
	ThreatTags       []string `json:"threat_tags"`
	MitreTactics     []string `json:"mitre_tactics"`
	IntelIndicators  []string `json:"intel_indicators"`
	SanitizedPreview string   `json:"sanitized_preview"`
}

// IngestSummary is the caller-facing result of ingesting one document.
// Document-level tags come from a fresh full-text extraction, not a union of
// the chunk profiles: a chunk boundary can split a multi-word pattern.
type IngestSummary struct {
	DocID           string   `json:"doc_id"`
	Chunks          int      `json:"chunks"`
	Hash            string   `json:"hash"`
	ThreatTags      []string `json:"threat_tags"`
	MitreTactics    []string `json:"mitre_tactics"`
	IntelIndicators []string `json:"intel_indicators"`
	ChunkMode       string   `json:"chunk_mode"`
}
