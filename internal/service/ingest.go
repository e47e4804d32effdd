package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/pagination"
	"github.com/cloo-solutions/lexidx/internal/telemetry"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DocumentRepository is the persistence surface for documents.
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListPage(ctx context.Context, status domain.DocumentStatus, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMsg string) error
	MarkProcessed(ctx context.Context, id string, chunkCount int, processedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// ChunkRepository is the persistence surface for chunks.
type ChunkRepository interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error
	ListByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error)
}

// ProcessingJobRepository is the persistence surface for processing jobs.
type ProcessingJobRepository interface {
	Create(ctx context.Context, job *domain.ProcessingJob) error
	ClaimPending(ctx context.Context, limit int) ([]*domain.ProcessingJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProcessingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// TxRepositories exposes repositories bound to a single transaction.
type TxRepositories interface {
	Documents() DocumentRepository
	Chunks() ChunkRepository
	ProcessingJobs() ProcessingJobRepository
}

// TxRunner runs a function within a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// ObjectStore is the raw-bytes storage surface for uploaded files.
type ObjectStore interface {
	PutObject(ctx context.Context, key string, contentType string, body []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	DeleteObject(ctx context.Context, key string) error
}

// IngestConfig holds the ingestion pipeline's tunables.
type IngestConfig struct {
	// Workers bounds concurrent chunk encoding per document.
	Workers int
	// EmbedRatePerSecond throttles encoding throughput.
	EmbedRatePerSecond int
	// MaxUploadBytes rejects oversized uploads before they reach storage.
	MaxUploadBytes int64
}

// DefaultIngestConfig returns the default ingestion configuration.
func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Workers:            2,
		EmbedRatePerSecond: 100,
		MaxUploadBytes:     50 << 20,
	}
}

// UploadRequest carries a document upload.
type UploadRequest struct {
	Title    string
	Filename string
	Data     []byte
}

// IngestService owns the document lifecycle: upload, processing into indexed
// chunks, and deletion.
type IngestService struct {
	docs      DocumentRepository
	chunks    ChunkRepository
	jobs      ProcessingJobRepository
	tx        TxRunner
	store     ObjectStore
	extractor *Extractor
	chunker   *Chunker
	encoder   Encoder
	limiter   *rate.Limiter
	cfg       IngestConfig
}

// NewIngestService creates an IngestService.
func NewIngestService(
	docs DocumentRepository,
	chunks ChunkRepository,
	jobs ProcessingJobRepository,
	tx TxRunner,
	store ObjectStore,
	extractor *Extractor,
	chunker *Chunker,
	encoder Encoder,
	cfg IngestConfig,
) *IngestService {
	if cfg.Workers <= 0 {
		cfg = DefaultIngestConfig()
	}
	return &IngestService{
		docs:      docs,
		chunks:    chunks,
		jobs:      jobs,
		tx:        tx,
		store:     store,
		extractor: extractor,
		chunker:   chunker,
		encoder:   encoder,
		limiter:   rate.NewLimiter(rate.Limit(cfg.EmbedRatePerSecond), cfg.EmbedRatePerSecond),
		cfg:       cfg,
	}
}

// Upload validates and stores an uploaded file, then enqueues a processing
// job. The document row and the job are created in one transaction so a job
// never references a missing document.
func (s *IngestService) Upload(ctx context.Context, req UploadRequest) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Upload", telemetry.SpanAttributes{
		Operation: "upload",
	})
	defer span.End()

	fileType, err := fileTypeFromFilename(req.Filename)
	if err != nil {
		return nil, err
	}
	if len(req.Data) == 0 {
		return nil, domain.ErrEmptyDocument
	}
	if s.cfg.MaxUploadBytes > 0 && int64(len(req.Data)) > s.cfg.MaxUploadBytes {
		return nil, domain.NewDomainError(domain.ErrCodeValidation,
			fmt.Sprintf("file exceeds maximum size of %d bytes", s.cfg.MaxUploadBytes))
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("documents/%s/%s", id, req.Filename)
	doc := domain.NewDocument(id, title, req.Filename, fileType, int64(len(req.Data)), storageKey)

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	if err := s.store.PutObject(ctx, doc.StorageKey, contentTypeFor(fileType), req.Data); err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store uploaded file", err)
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		job := domain.NewProcessingJob(uuid.NewString(), doc.ID)
		return repos.ProcessingJobs().Create(ctx, job)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return doc, nil
}

// ProcessDocument runs the full pipeline for a stored document: extract,
// chunk, encode, persist. Reprocessing replaces all prior chunks.
func (s *IngestService) ProcessDocument(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.ProcessDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "process_document",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusProcessing, ""); err != nil {
		return err
	}

	if err := s.process(ctx, doc); err != nil {
		span.SetError(err)
		if statusErr := s.docs.UpdateStatus(ctx, doc.ID, domain.DocumentStatusError, err.Error()); statusErr != nil {
			log.Printf("failed to record processing error for document %s: %v", doc.ID, statusErr)
		}
		return err
	}
	return nil
}

func (s *IngestService) process(ctx context.Context, doc *domain.Document) error {
	raw, err := s.store.GetObject(ctx, doc.StorageKey)
	if err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to fetch document from storage", err)
	}

	pages, err := s.extractor.Extract(ctx, raw, doc.FileType)
	if err != nil {
		return err
	}

	result := s.chunker.ChunkPages(doc.ID, pages)
	if len(result.Chunks) == 0 {
		return domain.ErrEmptyDocument
	}

	if err := s.encodeChunks(ctx, result.Chunks); err != nil {
		return err
	}

	now := time.Now().UTC()
	return s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Chunks().ReplaceChunks(ctx, doc.ID, result.Chunks); err != nil {
			return err
		}
		return repos.Documents().MarkProcessed(ctx, doc.ID, len(result.Chunks), now)
	})
}

// encodeChunks embeds every chunk using a bounded worker pool with a shared
// rate limit. Chunk identity and model tag are assigned here.
func (s *IngestService) encodeChunks(ctx context.Context, chunks []domain.Chunk) error {
	workers := s.cfg.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	// Buffered so the feed loop below never blocks; workers may bail out
	// early on context cancellation without draining the channel.
	indexes := make(chan int, len(chunks))
	errs := make(chan error, workers)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				if err := s.limiter.Wait(ctx); err != nil {
					errs <- err
					return
				}
				c := &chunks[i]
				c.ID = uuid.NewString()
				c.Embedding = s.encoder.Encode(embedInput(c))
				c.EmbeddingModel = EmbeddingModelTag
			}
		}()
	}

	for i := range chunks {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// embedInput prefixes the chunk's structural type so same-text chunks of
// different types embed differently.
func embedInput(c *domain.Chunk) string {
	return string(c.Type) + ": " + c.Content
}

// GetDocument returns a document by id.
func (s *IngestService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// GetDocumentChunks returns a processed document's chunks in order.
func (s *IngestService) GetDocumentChunks(ctx context.Context, id string) ([]*domain.Chunk, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentStatusProcessed {
		return nil, domain.ErrDocumentNotProcessed
	}
	return s.chunks.ListByDocument(ctx, id)
}

// ListDocuments returns documents newest first with cursor pagination.
func (s *IngestService) ListDocuments(ctx context.Context, status domain.DocumentStatus, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, err
	}
	return s.docs.ListPage(ctx, status, decoded, limit)
}

// DeleteDocument removes the document row, its chunks, and the stored file.
// Chunks cascade with the row.
func (s *IngestService) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, id); err != nil {
		return err
	}
	if doc.StorageKey != "" {
		if err := s.store.DeleteObject(ctx, doc.StorageKey); err != nil {
			log.Printf("failed to delete stored object %s: %v", doc.StorageKey, err)
		}
	}
	return nil
}

func fileTypeFromFilename(filename string) (domain.FileType, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	ft := domain.FileType(ext)
	if !domain.IsValidFileType(ft) {
		return "", domain.ErrUnsupportedFileType
	}
	return ft, nil
}

func contentTypeFor(fileType domain.FileType) string {
	switch fileType {
	case domain.FileTypePDF:
		return "application/pdf"
	case domain.FileTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "text/plain; charset=utf-8"
	}
}
