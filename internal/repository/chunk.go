package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence and retrieval of document chunks and
// their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones.
// Reprocessing a document is idempotent through this path.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}

		_, err = r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(id, document_id, chunk_index, content, type, page_number, paragraph_index, char_start, char_end, metadata, embedding, embedding_model, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			c.ID,
			c.DocumentID,
			c.ChunkIndex,
			c.Content,
			c.Type,
			c.Position.PageNumber,
			c.Position.ParagraphIndex,
			c.Position.CharStart,
			c.Position.CharEnd,
			metadata,
			pgvector.NewVector(c.Embedding),
			c.EmbeddingModel,
			createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// ListByDocument returns a document's chunks in index order.
func (r *ChunkRepository) ListByDocument(ctx context.Context, documentID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, chunk_index, content, type, page_number, paragraph_index, char_start, char_end, metadata, embedding_model, created_at
		 FROM document_chunks
		 WHERE document_id = $1
		 ORDER BY chunk_index ASC`,
		documentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.Content, &c.Type,
			&c.Position.PageNumber, &c.Position.ParagraphIndex, &c.Position.CharStart, &c.Position.CharEnd,
			&metadata, &c.EmbeddingModel, &c.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
			}
		}
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// SearchByEmbedding finds chunks whose embedding similarity to the query
// vector meets the threshold. Similarity is 1 minus vector distance, so the
// distance ordering and the similarity ordering agree.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filters service.SearchFilters, threshold float64, limit int) ([]*domain.ChunkHit, error) {
	if limit <= 0 {
		limit = 10
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT c.id, c.document_id, d.title, c.chunk_index, c.content, c.type,
		       c.page_number, c.paragraph_index, c.char_start, c.char_end,
		       1 - (c.embedding <-> $1) AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = $2 AND c.embedding IS NOT NULL
		  AND 1 - (c.embedding <-> $1) >= $3`
	args := []any{vec, domain.DocumentStatusProcessed, threshold}

	query, args = appendChunkFilters(query, args, filters)

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY c.embedding <-> $1 ASC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkHits(rows)
}

// SearchByKeyword finds chunks matching the query through Postgres full-text
// search, ranked by ts_rank.
func (r *ChunkRepository) SearchByKeyword(ctx context.Context, queryText string, filters service.SearchFilters, limit int) ([]*domain.ChunkHit, error) {
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT c.id, c.document_id, d.title, c.chunk_index, c.content, c.type,
		       c.page_number, c.paragraph_index, c.char_start, c.char_end,
		       ts_rank(to_tsvector('english', c.content), websearch_to_tsquery('english', $1)) AS similarity
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE d.status = $2
		  AND to_tsvector('english', c.content) @@ websearch_to_tsquery('english', $1)`
	args := []any{queryText, domain.DocumentStatusProcessed}

	query, args = appendChunkFilters(query, args, filters)

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY similarity DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanChunkHits(rows)
}

func appendChunkFilters(query string, args []any, filters service.SearchFilters) (string, []any) {
	if len(filters.DocumentIDs) > 0 {
		args = append(args, filters.DocumentIDs)
		query += fmt.Sprintf(" AND c.document_id = ANY($%d)", len(args))
	}
	if len(filters.ChunkTypes) > 0 {
		types := make([]string, len(filters.ChunkTypes))
		for i, t := range filters.ChunkTypes {
			types[i] = string(t)
		}
		args = append(args, types)
		query += fmt.Sprintf(" AND c.type = ANY($%d)", len(args))
	}
	return query, args
}

func scanChunkHits(rows pgx.Rows) ([]*domain.ChunkHit, error) {
	hits := make([]*domain.ChunkHit, 0)
	for rows.Next() {
		var h domain.ChunkHit
		if err := rows.Scan(&h.ChunkID, &h.DocumentID, &h.DocumentTitle, &h.ChunkIndex, &h.Content, &h.Type,
			&h.PageNumber, &h.ParagraphIndex, &h.CharStart, &h.CharEnd, &h.Similarity); err != nil {
			return nil, err
		}
		hits = append(hits, &h)
	}
	return hits, rows.Err()
}
