package service

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/telemetry"
	"github.com/google/uuid"
)

// SearchFilters restricts a search to document and chunk-type subsets.
type SearchFilters struct {
	DocumentIDs []string
	ChunkTypes  []domain.ChunkType
}

// SearchRequest is the search API contract.
type SearchRequest struct {
	Query         string
	Filters       SearchFilters
	Limit         int
	Threshold     float64
	IncludeHybrid bool
}

// SearchMetadata describes how a search was executed.
type SearchMetadata struct {
	ElapsedMS      int64
	VectorResults  int
	KeywordResults int
	Threshold      float64
	CacheHit       bool
}

// SearchResponse is the ranked output of a search. On retrieval failure the
// engine degrades to an empty response carrying Error rather than surfacing
// the underlying failure.
type SearchResponse struct {
	Query         string
	ExpandedQuery string
	Intent        QueryIntent
	TotalResults  int
	Results       []*domain.ChunkHit
	Suggestions   []string
	Error         string
	Metadata      SearchMetadata
}

// RerankWeights are the enhanced-score combination weights; they sum to 1.
type RerankWeights struct {
	Similarity        float64
	QueryTermOverlap  float64
	ChunkTypeBonus    float64
	DocumentRelevance float64
}

// SearchConfig holds the engine's tunable constants, hoisted out of the
// ranking formulas so they can be tested independently.
type SearchConfig struct {
	DefaultLimit     int
	DefaultThreshold float64
	// HybridBoost is added to the vector score when a chunk is found by
	// both signals.
	HybridBoost float64
	Rerank      RerankWeights
	CacheTTL    time.Duration
}

// DefaultSearchConfig returns the default engine configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		DefaultLimit:     10,
		DefaultThreshold: 0.7,
		HybridBoost:      0.2,
		Rerank: RerankWeights{
			Similarity:        0.4,
			QueryTermOverlap:  0.3,
			ChunkTypeBonus:    0.15,
			DocumentRelevance: 0.15,
		},
		CacheTTL: DefaultCacheTTL,
	}
}

// chunkTypeBonuses rank structural types by expected relevance for legal
// queries.
var chunkTypeBonuses = map[domain.ChunkType]float64{
	domain.ChunkTypeClause:     0.9,
	domain.ChunkTypeDefinition: 0.8,
	domain.ChunkTypeHeading:    0.7,
	domain.ChunkTypeParagraph:  0.6,
	domain.ChunkTypeListItem:   0.5,
}

var searchStopwords = map[string]struct{}{
	"the": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {},
	"at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
}

// ChunkSearchRepository is the retrieval store surface the engine needs.
type ChunkSearchRepository interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, filters SearchFilters, threshold float64, limit int) ([]*domain.ChunkHit, error)
	SearchByKeyword(ctx context.Context, query string, filters SearchFilters, limit int) ([]*domain.ChunkHit, error)
}

// SearchLogRepository records per-query analytics rows.
type SearchLogRepository interface {
	Create(ctx context.Context, entry *domain.SearchLog) error
}

// SearchEngine orchestrates vector and keyword retrieval, merges and reranks
// the results, and caches full responses.
type SearchEngine struct {
	repo      ChunkSearchRepository
	encoder   Encoder
	optimizer *QueryOptimizer
	cache     *SearchCache
	logs      SearchLogRepository
	cfg       SearchConfig
}

// NewSearchEngine creates a SearchEngine. logs may be nil to disable
// analytics logging.
func NewSearchEngine(repo ChunkSearchRepository, encoder Encoder, logs SearchLogRepository, cfg SearchConfig) *SearchEngine {
	if cfg.DefaultLimit <= 0 {
		cfg = DefaultSearchConfig()
	}
	return &SearchEngine{
		repo:      repo,
		encoder:   encoder,
		optimizer: NewQueryOptimizer(),
		cache:     NewSearchCache(cfg.CacheTTL),
		logs:      logs,
		cfg:       cfg,
	}
}

// Search performs hybrid search: cache lookup, query encoding, vector and
// keyword retrieval, merge with strict deduplication, score-ordered output.
func (e *SearchEngine) Search(ctx context.Context, req SearchRequest) *SearchResponse {
	ctx, span := telemetry.StartSpan(ctx, "SearchEngine.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	return e.search(ctx, req, false)
}

// SearchAdvanced adds query-intent-aware filter suggestion, enhanced-score
// reranking, and result explanation on top of Search.
func (e *SearchEngine) SearchAdvanced(ctx context.Context, req SearchRequest) *SearchResponse {
	ctx, span := telemetry.StartSpan(ctx, "SearchEngine.SearchAdvanced", telemetry.SpanAttributes{
		Operation: "search_advanced",
	})
	defer span.End()

	return e.search(ctx, req, true)
}

func (e *SearchEngine) search(ctx context.Context, req SearchRequest, advanced bool) *SearchResponse {
	start := time.Now()

	if req.Limit <= 0 {
		req.Limit = e.cfg.DefaultLimit
	}
	if req.Threshold <= 0 {
		req.Threshold = e.cfg.DefaultThreshold
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return e.emptyResponse(req, "empty query")
	}

	analysis := e.optimizer.Optimize(query)
	if advanced && len(req.Filters.ChunkTypes) == 0 {
		req.Filters.ChunkTypes = analysis.SuggestedFilters
	}

	key := CacheKey(analysis.ExpandedQuery, req.Filters, req.Limit, req.Threshold, searchMode(advanced, req.IncludeHybrid))
	if cached, ok := e.cache.Get(key); ok {
		resp := *cached
		resp.Metadata.CacheHit = true
		return &resp
	}

	embedding := e.encoder.EncodeQuery(analysis.ExpandedQuery)

	vectorHits, err := e.repo.SearchByEmbedding(ctx, embedding, req.Filters, req.Threshold, req.Limit)
	if err != nil {
		log.Printf("vector search failed: %v", err)
		return e.emptyResponse(req, "retrieval failed: "+err.Error())
	}
	for _, hit := range vectorHits {
		hit.Origin = domain.SearchOriginVector
	}

	var keywordHits []*domain.ChunkHit
	if req.IncludeHybrid {
		keywordHits, err = e.repo.SearchByKeyword(ctx, query, req.Filters, req.Limit/2)
		if err != nil {
			// Keyword retrieval is a recall supplement; vector results
			// still stand.
			log.Printf("keyword search failed: %v", err)
			keywordHits = nil
		}
		for _, hit := range keywordHits {
			hit.Origin = domain.SearchOriginKeyword
			hit.Similarity = queryTermOverlap(hit.Content, query)
		}
	}

	merged := e.mergeHits(vectorHits, keywordHits)

	if advanced {
		e.rerank(merged, query)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score() > merged[j].Score()
	})
	if len(merged) > req.Limit {
		merged = merged[:req.Limit]
	}

	resp := &SearchResponse{
		Query:         query,
		ExpandedQuery: analysis.ExpandedQuery,
		Intent:        analysis.Intent,
		TotalResults:  len(merged),
		Results:       merged,
		Metadata: SearchMetadata{
			ElapsedMS:      time.Since(start).Milliseconds(),
			VectorResults:  len(vectorHits),
			KeywordResults: len(keywordHits),
			Threshold:      req.Threshold,
		},
	}
	if advanced {
		resp.Suggestions = e.suggestions(query, analysis, merged)
	}

	e.cache.Put(key, resp)
	e.logSearch(ctx, query, analysis.Intent, len(merged), resp.Metadata.ElapsedMS, advanced)

	return resp
}

// searchMode names the cache-key partition for a request variant.
func searchMode(advanced, hybrid bool) string {
	mode := "basic"
	if advanced {
		mode = "advanced"
	}
	if hybrid {
		mode += "+hybrid"
	}
	return mode
}

// mergeHits unions vector and keyword hits by chunk id. A chunk found by both
// signals becomes hybrid with the vector score plus a fixed boost; dedup is
// strict. Vector-origin hits keep their position ahead of pure-keyword hits,
// which is the tie-break order for equal scores.
func (e *SearchEngine) mergeHits(vectorHits, keywordHits []*domain.ChunkHit) []*domain.ChunkHit {
	merged := make([]*domain.ChunkHit, 0, len(vectorHits)+len(keywordHits))
	byID := make(map[string]*domain.ChunkHit, len(vectorHits))

	for _, hit := range vectorHits {
		if _, ok := byID[hit.ChunkID]; ok {
			continue
		}
		byID[hit.ChunkID] = hit
		merged = append(merged, hit)
	}

	for _, hit := range keywordHits {
		if existing, ok := byID[hit.ChunkID]; ok {
			existing.Origin = domain.SearchOriginHybrid
			existing.Similarity = clampScore(existing.Similarity + e.cfg.HybridBoost)
			continue
		}
		byID[hit.ChunkID] = hit
		merged = append(merged, hit)
	}

	return merged
}

// rerank computes the enhanced score for every hit as the weighted sum of
// base similarity, query-term overlap, chunk-type bonus, and document
// relevance, clamped to [0,1].
func (e *SearchEngine) rerank(hits []*domain.ChunkHit, query string) {
	w := e.cfg.Rerank
	for _, hit := range hits {
		factors := &domain.RankingFactors{
			Similarity:        hit.Similarity,
			QueryTermOverlap:  queryTermOverlap(hit.Content, query),
			ChunkTypeBonus:    chunkTypeBonus(hit.Type),
			DocumentRelevance: documentRelevance(hit.DocumentTitle),
		}
		hit.RankingFactors = factors
		hit.EnhancedScore = clampScore(
			factors.Similarity*w.Similarity +
				factors.QueryTermOverlap*w.QueryTermOverlap +
				factors.ChunkTypeBonus*w.ChunkTypeBonus +
				factors.DocumentRelevance*w.DocumentRelevance,
		)
	}
}

// queryTermOverlap computes |query terms ∩ content terms| / |query terms|
// over lower-cased terms with stop words removed.
func queryTermOverlap(content, query string) float64 {
	terms := make(map[string]struct{})
	for _, t := range strings.Fields(strings.ToLower(query)) {
		if _, stop := searchStopwords[t]; stop {
			continue
		}
		terms[t] = struct{}{}
	}
	if len(terms) == 0 {
		return 0
	}

	contentLower := strings.ToLower(content)
	matched := 0
	for t := range terms {
		if strings.Contains(contentLower, t) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

func chunkTypeBonus(t domain.ChunkType) float64 {
	if bonus, ok := chunkTypeBonuses[t]; ok {
		return bonus
	}
	return 0.5
}

// documentRelevance boosts chunks from recognizable legal document titles.
func documentRelevance(title string) float64 {
	relevance := 0.5
	lower := strings.ToLower(title)
	if strings.Contains(lower, "contract") || strings.Contains(lower, "agreement") || strings.Contains(lower, "policy") {
		relevance += 0.2
	}
	if len(title) > 10 {
		relevance += 0.1
	}
	return clampScore(relevance)
}

func (e *SearchEngine) suggestions(query string, analysis QueryAnalysis, results []*domain.ChunkHit) []string {
	const maxSuggestions = 5

	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		if len(out) >= maxSuggestions {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, concept := range analysis.LegalConcepts {
		for _, syn := range legalSynonyms[concept] {
			if !strings.Contains(strings.ToLower(query), syn) {
				add(query + " " + syn)
			}
		}
	}

	add(query + " obligations")
	add(query + " requirements")
	add(query + " definition")

	return out
}

func (e *SearchEngine) emptyResponse(req SearchRequest, reason string) *SearchResponse {
	return &SearchResponse{
		Query:        strings.TrimSpace(req.Query),
		TotalResults: 0,
		Results:      []*domain.ChunkHit{},
		Error:        reason,
		Metadata: SearchMetadata{
			Threshold: req.Threshold,
		},
	}
}

// logSearch records the query for analytics. Failures are swallowed: a lost
// log row must never fail a search.
func (e *SearchEngine) logSearch(ctx context.Context, query string, intent QueryIntent, results int, elapsedMS int64, advanced bool) {
	if e.logs == nil {
		return
	}
	queryType := "semantic"
	if advanced {
		queryType = "advanced_semantic"
	}
	entry := &domain.SearchLog{
		ID:          uuid.NewString(),
		Query:       query,
		QueryType:   queryType + ":" + string(intent),
		ResultCount: results,
		ElapsedMS:   elapsedMS,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.logs.Create(ctx, entry); err != nil {
		log.Printf("failed to log search: %v", err)
	}
}

func clampScore(f float64) float64 {
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
