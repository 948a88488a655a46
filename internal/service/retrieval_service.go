package service

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/iron-dillo/cybersandbox/internal/ai"
	"github.com/iron-dillo/cybersandbox/internal/intel"
	"github.com/iron-dillo/cybersandbox/internal/model"
	"github.com/iron-dillo/cybersandbox/internal/sanitize"
	"github.com/iron-dillo/cybersandbox/internal/vectorstore"
)

// Candidates are over-fetched by this factor so post-filtering still leaves
// enough survivors to fill top_k.
const overFetchFactor = 3

// RetrievalService turns a raw query into a bounded, explainable hit list.
// It only reads the vector index and holds no mutable state, so a single
// instance serves concurrent callers.
type RetrievalService struct {
	embedder ai.IEmbedder
	store    vectorstore.Store
}

func NewRetrievalService(embedder ai.IEmbedder, store vectorstore.Store) *RetrievalService {
	return &RetrievalService{embedder: embedder, store: store}
}

func (s *RetrievalService) Retrieve(ctx context.Context, query string, opts model.QueryOptions) (*model.RetrievalResult, error) {
	opts = opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := logutil.GetLogger(ctx).With(zap.String("mode", string(opts.Mode)), zap.Int("top_k", opts.TopK))

	// The query's own threat profile is computed in every mode; it is part
	// of the response and feeds the threat component score.
	queryProfile := intel.Extract(query)

	embeddings, err := s.embedder.Embed(ctx, []string{query}, ai.TaskTypeQuery)
	if err != nil {
		logger.Error("query embedding failed", zap.Error(err))
		return nil, err
	}

	fetch := opts.TopK * overFetchFactor
	if fetch < opts.TopK {
		fetch = opts.TopK
	}
	candidates, err := s.store.Query(ctx, embeddings[0], fetch)
	if err != nil {
		logger.Error("vector store query failed", zap.Error(err))
		return nil, err
	}

	survivors := make([]vectorstore.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !opts.AllowsDoc(c.Metadata.DocID) {
			continue
		}
		if !opts.AllowsTags(c.Metadata.ThreatTags) {
			continue
		}
		survivors = append(survivors, c)
	}

	var hits []model.Hit
	switch opts.Mode {
	case model.ModeVector:
		hits = rankVector(survivors, opts.TopK)
	case model.ModeHybrid, model.ModeIntel:
		hits = rankFused(survivors, query, queryProfile, opts)
	}

	logger.Debug("retrieval finished",
		zap.Int("candidates", len(candidates)),
		zap.Int("survivors", len(survivors)),
		zap.Int("hits", len(hits)),
	)
	return &model.RetrievalResult{
		Query:         query,
		RetrievalMode: opts.Mode,
		ThreatProfile: queryProfile,
		Hits:          hits,
	}, nil
}

// rankVector keeps the index's ascending-distance order and stops once
// top_k surviving hits are collected.
func rankVector(survivors []vectorstore.Candidate, topK int) []model.Hit {
	hits := make([]model.Hit, 0, topK)
	for _, c := range survivors {
		if len(hits) == topK {
			break
		}
		hits = append(hits, model.Hit{
			ID:       c.ID,
			Distance: c.Distance,
			Score:    semanticScore(c.Distance),
			Metadata: c.Metadata,
			Preview:  sanitize.Preview(c.Document, previewLimit),
		})
	}
	return hits
}

// rankFused combines semantic, keyword, and threat signals into one weighted
// score per candidate, then sorts descending. The sort is stable: equal
// scores keep their ascending-distance order from the index.
func rankFused(survivors []vectorstore.Candidate, query string, queryProfile intel.Profile, opts model.QueryOptions) []model.Hit {
	queryTokens := tokenize(query)
	hits := make([]model.Hit, 0, len(survivors))
	for _, c := range survivors {
		semantic := semanticScore(c.Distance)
		keyword := keywordScore(queryTokens, c.Document)
		threat := threatScore(queryProfile.Tags, c.Metadata.ThreatTags)
		hits = append(hits, model.Hit{
			ID:            c.ID,
			Distance:      c.Distance,
			Score:         opts.SemanticWeight*semantic + opts.KeywordWeight*keyword + opts.ThreatWeight*threat,
			SemanticScore: semantic,
			KeywordScore:  keyword,
			ThreatScore:   threat,
			Metadata:      c.Metadata,
			Preview:       sanitize.Preview(c.Document, previewLimit),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > opts.TopK {
		hits = hits[:opts.TopK]
	}
	return hits
}

// semanticScore maps a non-negative index distance into (0, 1], higher for
// closer candidates. Negative distances (defensive against index quirks)
// are clamped to zero.
func semanticScore(distance float64) float64 {
	if distance < 0 {
		distance = 0
	}
	return 1 / (1 + distance)
}

func keywordScore(queryTokens map[string]struct{}, document string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	docTokens := tokenize(document)
	if len(docTokens) == 0 {
		return 0
	}
	matched := 0
	for token := range queryTokens {
		if _, ok := docTokens[token]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func threatScore(queryTags, candidateTags []string) float64 {
	if len(queryTags) == 0 || len(candidateTags) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(candidateTags))
	for _, tag := range candidateTags {
		set[strings.ToLower(tag)] = struct{}{}
	}
	matched := 0
	for _, tag := range queryTags {
		if _, ok := set[strings.ToLower(tag)]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTags))
}

var tokenRE = regexp.MustCompile(`[a-z0-9_-]+`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "were": {}, "has": {}, "have": {},
	"had": {}, "not": {}, "but": {}, "all": {}, "can": {}, "will": {},
	"its": {}, "into": {}, "over": {}, "than": {}, "then": {}, "them": {},
	"they": {}, "there": {}, "what": {}, "when": {}, "where": {}, "which": {},
	"who": {}, "how": {}, "why": {}, "you": {}, "your": {}, "our": {},
	"any": {}, "via": {}, "per": {}, "need": {}, "about": {},
}

// tokenize lowercases the text and keeps alphanumeric/hyphen/underscore
// runs longer than two characters, minus stopwords.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range tokenRE.FindAllString(strings.ToLower(text), -1) {
		if len(token) <= 2 {
			continue
		}
		if _, ok := stopwords[token]; ok {
			continue
		}
		tokens[token] = struct{}{}
	}
	return tokens
}
