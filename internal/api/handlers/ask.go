package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/lexidx/internal/api"
	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/service"
)

type AnswerService interface {
	Ask(ctx context.Context, req service.AskRequest) (*service.Answer, error)
}

type AskHandler struct {
	svc AnswerService
}

func NewAskHandler(svc AnswerService) *AskHandler {
	return &AskHandler{svc: svc}
}

type AskRequest struct {
	Question     string   `json:"question"`
	DocumentIDs  []string `json:"document_ids,omitempty"`
	ChunkTypes   []string `json:"chunk_types,omitempty"`
	ContextLimit int      `json:"context_limit,omitempty"`
	Threshold    float64  `json:"threshold,omitempty"`
}

func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}
	if req.ContextLimit < 0 {
		api.Error(w, http.StatusBadRequest, "context_limit must not be negative")
		return
	}
	if req.Threshold < 0 || req.Threshold > 1 {
		api.Error(w, http.StatusBadRequest, "threshold must be between 0 and 1")
		return
	}

	types := make([]domain.ChunkType, 0, len(req.ChunkTypes))
	for _, raw := range req.ChunkTypes {
		ct := domain.ChunkType(raw)
		if !domain.IsValidChunkType(ct) {
			api.Error(w, http.StatusBadRequest, "invalid chunk type: "+raw)
			return
		}
		types = append(types, ct)
	}

	answer, err := h.svc.Ask(r.Context(), service.AskRequest{
		Question: req.Question,
		Filters: service.SearchFilters{
			DocumentIDs: req.DocumentIDs,
			ChunkTypes:  types,
		},
		ContextLimit: req.ContextLimit,
		Threshold:    req.Threshold,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, answer)
}
