package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/lexidx/internal/api"
	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/service"
)

type SearchService interface {
	Search(ctx context.Context, req service.SearchRequest) *service.SearchResponse
	SearchAdvanced(ctx context.Context, req service.SearchRequest) *service.SearchResponse
}

type SuggestionSource interface {
	RecentQueries(ctx context.Context, limit int) ([]string, error)
}

type SearchHandler struct {
	svc         SearchService
	suggestions SuggestionSource
}

func NewSearchHandler(svc SearchService, suggestions SuggestionSource) *SearchHandler {
	return &SearchHandler{svc: svc, suggestions: suggestions}
}

type SearchRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"document_ids,omitempty"`
	ChunkTypes  []string `json:"chunk_types,omitempty"`
	Limit       int      `json:"limit,omitempty"`
	Threshold   float64  `json:"threshold,omitempty"`
	// IncludeHybrid defaults to true when omitted; keyword recall is part
	// of the standard retrieval path and must be switched off explicitly.
	IncludeHybrid *bool `json:"include_hybrid,omitempty"`
}

type SearchHitResponse struct {
	ChunkID        string                 `json:"chunk_id"`
	DocumentID     string                 `json:"document_id"`
	DocumentTitle  string                 `json:"document_title"`
	ChunkIndex     int                    `json:"chunk_index"`
	Content        string                 `json:"content"`
	Type           string                 `json:"type"`
	PageNumber     int                    `json:"page_number,omitempty"`
	CharStart      int                    `json:"char_start"`
	CharEnd        int                    `json:"char_end"`
	Similarity     float64                `json:"similarity"`
	EnhancedScore  float64                `json:"enhanced_score,omitempty"`
	Origin         string                 `json:"origin"`
	RankingFactors *domain.RankingFactors `json:"ranking_factors,omitempty"`
}

type SearchResponseBody struct {
	Query          string               `json:"query"`
	ExpandedQuery  string               `json:"expanded_query,omitempty"`
	Intent         string               `json:"intent,omitempty"`
	TotalResults   int                  `json:"total_results"`
	Results        []*SearchHitResponse `json:"results"`
	Suggestions    []string             `json:"suggestions,omitempty"`
	Error          string               `json:"error,omitempty"`
	VectorResults  int                  `json:"vector_results"`
	KeywordResults int                  `json:"keyword_results"`
	ElapsedMS      int64                `json:"elapsed_ms"`
}

type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

func searchToResponse(resp *service.SearchResponse) *SearchResponseBody {
	hits := make([]*SearchHitResponse, 0, len(resp.Results))
	for _, h := range resp.Results {
		hits = append(hits, &SearchHitResponse{
			ChunkID:        h.ChunkID,
			DocumentID:     h.DocumentID,
			DocumentTitle:  h.DocumentTitle,
			ChunkIndex:     h.ChunkIndex,
			Content:        h.Content,
			Type:           string(h.Type),
			PageNumber:     h.PageNumber,
			CharStart:      h.CharStart,
			CharEnd:        h.CharEnd,
			Similarity:     h.Similarity,
			EnhancedScore:  h.EnhancedScore,
			Origin:         string(h.Origin),
			RankingFactors: h.RankingFactors,
		})
	}

	return &SearchResponseBody{
		Query:          resp.Query,
		ExpandedQuery:  resp.ExpandedQuery,
		Intent:         string(resp.Intent),
		TotalResults:   resp.TotalResults,
		Results:        hits,
		Suggestions:    resp.Suggestions,
		Error:          resp.Error,
		VectorResults:  resp.Metadata.VectorResults,
		KeywordResults: resp.Metadata.KeywordResults,
		ElapsedMS:      resp.Metadata.ElapsedMS,
	}
}

func decodeSearchRequest(w http.ResponseWriter, r *http.Request) (service.SearchRequest, bool) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return service.SearchRequest{}, false
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return service.SearchRequest{}, false
	}
	if req.Limit < 0 || req.Limit > 100 {
		api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return service.SearchRequest{}, false
	}

	types := make([]domain.ChunkType, 0, len(req.ChunkTypes))
	for _, raw := range req.ChunkTypes {
		ct := domain.ChunkType(raw)
		if !domain.IsValidChunkType(ct) {
			api.Error(w, http.StatusBadRequest, "invalid chunk type: "+raw)
			return service.SearchRequest{}, false
		}
		types = append(types, ct)
	}

	includeHybrid := true
	if req.IncludeHybrid != nil {
		includeHybrid = *req.IncludeHybrid
	}

	return service.SearchRequest{
		Query: req.Query,
		Filters: service.SearchFilters{
			DocumentIDs: req.DocumentIDs,
			ChunkTypes:  types,
		},
		Limit:         req.Limit,
		Threshold:     req.Threshold,
		IncludeHybrid: includeHybrid,
	}, true
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	resp := h.svc.Search(r.Context(), req)
	api.Success(w, http.StatusOK, searchToResponse(resp))
}

func (h *SearchHandler) SearchAdvanced(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSearchRequest(w, r)
	if !ok {
		return
	}

	resp := h.svc.SearchAdvanced(r.Context(), req)
	api.Success(w, http.StatusOK, searchToResponse(resp))
}

// Suggestions returns recently issued queries for typeahead.
func (h *SearchHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	queries, err := h.suggestions.RecentQueries(r.Context(), 10)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if queries == nil {
		queries = []string{}
	}

	api.Success(w, http.StatusOK, &SuggestionsResponse{Suggestions: queries})
}
