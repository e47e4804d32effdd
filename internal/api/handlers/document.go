package handlers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/lexidx/internal/api"
	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/pagination"
	"github.com/cloo-solutions/lexidx/internal/service"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Upload(ctx context.Context, req service.UploadRequest) (*domain.Document, error)
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	GetDocumentChunks(ctx context.Context, id string) ([]*domain.Chunk, error)
	ListDocuments(ctx context.Context, status domain.DocumentStatus, cursor string, limit int) (*pagination.PageResult[*domain.Document], error)
	DeleteDocument(ctx context.Context, id string) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type DocumentResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Filename    string `json:"filename"`
	FileType    string `json:"file_type"`
	SizeBytes   int64  `json:"size_bytes"`
	Status      string `json:"status"`
	ChunkCount  int    `json:"chunk_count"`
	Error       string `json:"error,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	ProcessedAt string `json:"processed_at,omitempty"`
}

type DocumentListResponse struct {
	Documents []*DocumentResponse `json:"documents"`
	Cursor    string              `json:"cursor,omitempty"`
	HasMore   bool                `json:"has_more"`
}

type ChunkResponse struct {
	ID             string `json:"id"`
	ChunkIndex     int    `json:"chunk_index"`
	Content        string `json:"content"`
	Type           string `json:"type"`
	PageNumber     int    `json:"page_number"`
	ParagraphIndex int    `json:"paragraph_index"`
	CharStart      int    `json:"char_start"`
	CharEnd        int    `json:"char_end"`
}

const timeFormat = "2006-01-02T15:04:05Z"

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:         d.ID,
		Title:      d.Title,
		Filename:   d.Filename,
		FileType:   string(d.FileType),
		SizeBytes:  d.SizeBytes,
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		Error:      d.Error,
		CreatedAt:  d.CreatedAt.Format(timeFormat),
		UpdatedAt:  d.UpdatedAt.Format(timeFormat),
	}
	if d.ProcessedAt != nil {
		resp.ProcessedAt = d.ProcessedAt.Format(timeFormat)
	}
	return resp
}

// Upload accepts a multipart form with a "file" part and optional "title".
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	doc, err := h.svc.Upload(r.Context(), service.UploadRequest{
		Title:    r.FormValue("title"),
		Filename: header.Filename,
		Data:     data,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.GetDocument(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	status := domain.DocumentStatus(r.URL.Query().Get("status"))
	cursor := r.URL.Query().Get("cursor")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	page, err := h.svc.ListDocuments(r.Context(), status, cursor, limit)
	if err != nil {
		if err == pagination.ErrInvalidCursor {
			api.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		api.HandleError(w, err)
		return
	}

	docs := make([]*DocumentResponse, 0, len(page.Items))
	for _, d := range page.Items {
		docs = append(docs, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, &DocumentListResponse{
		Documents: docs,
		Cursor:    page.Cursor,
		HasMore:   page.HasMore,
	})
}

func (h *DocumentHandler) GetChunks(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	chunks, err := h.svc.GetDocumentChunks(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, &ChunkResponse{
			ID:             c.ID,
			ChunkIndex:     c.ChunkIndex,
			Content:        c.Content,
			Type:           string(c.Type),
			PageNumber:     c.Position.PageNumber,
			ParagraphIndex: c.Position.ParagraphIndex,
			CharStart:      c.Position.CharStart,
			CharEnd:        c.Position.CharEnd,
		})
	}

	api.Success(w, http.StatusOK, out)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeleteDocument(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
