package model

import (
	"fmt"
	"strings"

	"github.com/iron-dillo/cybersandbox/internal/intel"
	apperrors "github.com/iron-dillo/cybersandbox/internal/pkg/errors"
)

type RetrievalMode string

const (
	ModeVector RetrievalMode = "vector"
	ModeHybrid RetrievalMode = "hybrid"
	ModeIntel  RetrievalMode = "intel"
)

// Default rank-fusion weights. They conventionally sum to 1 but are not
// required to.
const (
	DefaultSemanticWeight = 0.7
	DefaultKeywordWeight  = 0.2
	DefaultThreatWeight   = 0.1
)

const DefaultTopK = 5

// QueryOptions configures one retrieval call. Construct fresh per query;
// Normalize fills defaults without mutating the receiver.
type QueryOptions struct {
	TopK               int           `json:"top_k"`
	Mode               RetrievalMode `json:"retrieval_mode"`
	SemanticWeight     float64       `json:"semantic_weight"`
	KeywordWeight      float64       `json:"keyword_weight"`
	ThreatWeight       float64       `json:"threat_weight"`
	DocIDs             []string      `json:"doc_ids"`
	RequiredThreatTags []string      `json:"required_threat_tags"`
}

func (o QueryOptions) Normalize() QueryOptions {
	if o.TopK == 0 {
		o.TopK = DefaultTopK
	}
	if o.Mode == "" {
		o.Mode = ModeVector
	}
	if o.SemanticWeight == 0 && o.KeywordWeight == 0 && o.ThreatWeight == 0 {
		o.SemanticWeight = DefaultSemanticWeight
		o.KeywordWeight = DefaultKeywordWeight
		o.ThreatWeight = DefaultThreatWeight
	}
	return o
}

func (o QueryOptions) Validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", apperrors.ErrInvalid, o.TopK)
	}
	switch o.Mode {
	case ModeVector, ModeHybrid, ModeIntel:
		return nil
	}
	return fmt.Errorf("%w: Unsupported retrieval mode: %s", apperrors.ErrInvalid, o.Mode)
}

// AllowsDoc reports whether the doc id passes the allow-list filter.
func (o QueryOptions) AllowsDoc(docID string) bool {
	if len(o.DocIDs) == 0 {
		return true
	}
	for _, id := range o.DocIDs {
		if id == docID {
			return true
		}
	}
	return false
}

// AllowsTags reports whether the candidate tags contain every required tag.
func (o QueryOptions) AllowsTags(tags []string) bool {
	if len(o.RequiredThreatTags) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[strings.ToLower(tag)] = struct{}{}
	}
	for _, required := range o.RequiredThreatTags {
		if _, ok := set[strings.ToLower(required)]; !ok {
			return false
		}
	}
	return true
}

// Hit is one ranked retrieval result. Component scores are populated only
// for the hybrid and intel modes.
type Hit struct {
	ID            string        `json:"id"`
	Distance      float64       `json:"distance"`
	Score         float64       `json:"score"`
	SemanticScore float64       `json:"semantic_score,omitempty"`
	KeywordScore  float64       `json:"keyword_score,omitempty"`
	ThreatScore   float64       `json:"threat_score,omitempty"`
	Metadata      ChunkMetadata `json:"metadata"`
	Preview       string        `json:"preview"`
}

type RetrievalResult struct {
	Query         string        `json:"query"`
	RetrievalMode RetrievalMode `json:"retrieval_mode"`
	ThreatProfile intel.Profile `json:"threat_profile"`
	Hits          []Hit         `json:"results"`
}
