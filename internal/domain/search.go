package domain

import "time"

// SearchOrigin tags which retrieval signal produced a result.
type SearchOrigin string

const (
	SearchOriginVector  SearchOrigin = "vector"
	SearchOriginKeyword SearchOrigin = "keyword"
	SearchOriginHybrid  SearchOrigin = "hybrid"
)

// ChunkHit is a retrieved chunk with its document metadata and raw similarity.
// Similarity is 1 - distance for vector hits and the query-term overlap ratio
// for keyword hits.
type ChunkHit struct {
	ChunkID        string
	DocumentID     string
	DocumentTitle  string
	ChunkIndex     int
	Content        string
	Type           ChunkType
	PageNumber     int
	ParagraphIndex int
	CharStart      int
	CharEnd        int
	Similarity     float64
	Origin         SearchOrigin
	// EnhancedScore is the reranked combined score; zero until reranking runs.
	EnhancedScore  float64
	RankingFactors *RankingFactors
}

// RankingFactors breaks down the enhanced score for result explanation.
type RankingFactors struct {
	Similarity        float64 `json:"similarity_score"`
	QueryTermOverlap  float64 `json:"query_term_overlap"`
	ChunkTypeBonus    float64 `json:"chunk_type_bonus"`
	DocumentRelevance float64 `json:"document_relevance"`
}

// Score returns the score results are ranked by: the enhanced score once
// reranking has run, the raw similarity otherwise.
func (h *ChunkHit) Score() float64 {
	if h.EnhancedScore > 0 {
		return h.EnhancedScore
	}
	return h.Similarity
}

// SearchLog is one analytics row per executed query.
type SearchLog struct {
	ID          string
	Query       string
	QueryType   string
	ResultCount int
	ElapsedMS   int64
	CreatedAt   time.Time
}
