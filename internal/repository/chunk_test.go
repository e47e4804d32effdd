//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/service"
	"github.com/cloo-solutions/lexidx/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkTestDimension matches the embedding column width in the schema.
const chunkTestDimension = 768

func setupProcessedDocument(ctx context.Context, t *testing.T, docRepo *DocumentRepository, title string) *domain.Document {
	t.Helper()
	doc := newStoredDocument(title)
	require.NoError(t, docRepo.Create(ctx, doc))
	require.NoError(t, docRepo.MarkProcessed(ctx, doc.ID, 0, time.Now().UTC()))
	return doc
}

func encodedChunk(encoder *service.FeatureEncoder, documentID string, index int, chunkType domain.ChunkType, content string) domain.Chunk {
	return domain.Chunk{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		ChunkIndex: index,
		Content:    content,
		Type:       chunkType,
		Position: domain.Position{
			PageNumber:     1,
			ParagraphIndex: index,
			CharStart:      index * 100,
			CharEnd:        index*100 + len(content),
		},
		Metadata:       map[string]string{"source": "test"},
		Embedding:      encoder.Encode(string(chunkType) + ": " + content),
		EmbeddingModel: service.EmbeddingModelTag,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestChunkRepository_ReplaceAndList(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	encoder := service.NewFeatureEncoder(chunkTestDimension)

	doc := setupProcessedDocument(ctx, t, docRepo, "Consulting Agreement")

	first := []domain.Chunk{
		encodedChunk(encoder, doc.ID, 0, domain.ChunkTypeHeading, "Article 1. Services"),
		encodedChunk(encoder, doc.ID, 1, domain.ChunkTypeParagraph, "The consultant provides advisory services on a monthly basis."),
	}
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, first))

	listed, err := chunkRepo.ListByDocument(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first[0].ID, listed[0].ID)
	assert.Equal(t, 0, listed[0].ChunkIndex)
	assert.Equal(t, domain.ChunkTypeHeading, listed[0].Type)
	assert.Equal(t, first[0].Content, listed[0].Content)
	assert.Equal(t, first[0].Position, listed[0].Position)
	assert.Equal(t, map[string]string{"source": "test"}, listed[0].Metadata)
	assert.Equal(t, service.EmbeddingModelTag, listed[0].EmbeddingModel)

	t.Run("reprocessing replaces prior chunks", func(t *testing.T) {
		second := []domain.Chunk{
			encodedChunk(encoder, doc.ID, 0, domain.ChunkTypeClause, "Either party may terminate this agreement with thirty days notice."),
		}
		require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, second))

		listed, err := chunkRepo.ListByDocument(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, second[0].ID, listed[0].ID)
	})

	t.Run("replacing with no chunks clears the document", func(t *testing.T) {
		require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, nil))

		listed, err := chunkRepo.ListByDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}

func TestChunkRepository_SearchByEmbedding(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	encoder := service.NewFeatureEncoder(chunkTestDimension)

	doc := setupProcessedDocument(ctx, t, docRepo, "Master Services Agreement")

	termination := encodedChunk(encoder, doc.ID, 0, domain.ChunkTypeClause,
		"Either party may terminate this agreement with thirty days written notice.")
	payment := encodedChunk(encoder, doc.ID, 1, domain.ChunkTypeParagraph,
		"Invoices are due within fifteen days of receipt.")
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.Chunk{termination, payment}))

	t.Run("ranks the closest chunk first", func(t *testing.T) {
		query := encoder.Encode(string(termination.Type) + ": " + termination.Content)

		hits, err := chunkRepo.SearchByEmbedding(ctx, query, service.SearchFilters{}, -10, 10)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, termination.ID, hits[0].ChunkID)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
		assert.Equal(t, doc.ID, hits[0].DocumentID)
		assert.Equal(t, doc.Title, hits[0].DocumentTitle)
		assert.GreaterOrEqual(t, hits[0].Similarity, hits[1].Similarity)
	})

	t.Run("threshold drops distant chunks", func(t *testing.T) {
		query := encoder.Encode(string(termination.Type) + ": " + termination.Content)

		hits, err := chunkRepo.SearchByEmbedding(ctx, query, service.SearchFilters{}, 0.99, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, termination.ID, hits[0].ChunkID)
	})

	t.Run("chunk type filter applies", func(t *testing.T) {
		query := encoder.Encode(string(termination.Type) + ": " + termination.Content)

		hits, err := chunkRepo.SearchByEmbedding(ctx, query,
			service.SearchFilters{ChunkTypes: []domain.ChunkType{domain.ChunkTypeParagraph}}, -10, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, payment.ID, hits[0].ChunkID)
	})

	t.Run("excludes documents that are not processed", func(t *testing.T) {
		pending := newStoredDocument("Draft Agreement")
		require.NoError(t, docRepo.Create(ctx, pending))
		chunk := encodedChunk(encoder, pending.ID, 0, domain.ChunkTypeParagraph,
			"Either party may terminate this agreement with thirty days written notice.")
		require.NoError(t, chunkRepo.ReplaceChunks(ctx, pending.ID, []domain.Chunk{chunk}))

		query := encoder.Encode(string(chunk.Type) + ": " + chunk.Content)
		hits, err := chunkRepo.SearchByEmbedding(ctx, query, service.SearchFilters{}, -10, 10)
		require.NoError(t, err)
		for _, h := range hits {
			assert.NotEqual(t, pending.ID, h.DocumentID)
		}
	})
}

func TestChunkRepository_SearchByKeyword(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docRepo := NewDocumentRepository(pool)
	chunkRepo := NewChunkRepository(pool)
	encoder := service.NewFeatureEncoder(chunkTestDimension)

	doc := setupProcessedDocument(ctx, t, docRepo, "Employment Agreement")
	other := setupProcessedDocument(ctx, t, docRepo, "Vendor Agreement")

	termination := encodedChunk(encoder, doc.ID, 0, domain.ChunkTypeClause,
		"Either party may terminate this agreement with thirty days written notice.")
	salary := encodedChunk(encoder, doc.ID, 1, domain.ChunkTypeParagraph,
		"Base salary is paid in equal monthly installments.")
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, doc.ID, []domain.Chunk{termination, salary}))

	vendorTermination := encodedChunk(encoder, other.ID, 0, domain.ChunkTypeClause,
		"Termination for convenience requires sixty days prior notice.")
	require.NoError(t, chunkRepo.ReplaceChunks(ctx, other.ID, []domain.Chunk{vendorTermination}))

	t.Run("stemmed match across documents", func(t *testing.T) {
		hits, err := chunkRepo.SearchByKeyword(ctx, "termination notice", service.SearchFilters{}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		ids := []string{hits[0].ChunkID, hits[1].ChunkID}
		assert.Contains(t, ids, termination.ID)
		assert.Contains(t, ids, vendorTermination.ID)
		assert.Greater(t, hits[0].Similarity, 0.0)
	})

	t.Run("document filter applies", func(t *testing.T) {
		hits, err := chunkRepo.SearchByKeyword(ctx, "termination notice",
			service.SearchFilters{DocumentIDs: []string{other.ID}}, 10)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, vendorTermination.ID, hits[0].ChunkID)
	})

	t.Run("no match returns empty", func(t *testing.T) {
		hits, err := chunkRepo.SearchByKeyword(ctx, "indemnification escrow", service.SearchFilters{}, 10)
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}
