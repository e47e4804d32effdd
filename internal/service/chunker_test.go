package service

import (
	"strings"
	"testing"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_ChunkText(t *testing.T) {
	chunker := NewChunker(DefaultChunkerConfig())

	t.Run("splits on blank lines", func(t *testing.T) {
		text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
		result := chunker.ChunkText("doc-1", text)

		require.Len(t, result.Chunks, 3)
		assert.Equal(t, "First paragraph here.", result.Chunks[0].Content)
		assert.Equal(t, "Second paragraph here.", result.Chunks[1].Content)
		assert.Equal(t, "Third paragraph here.", result.Chunks[2].Content)
	})

	t.Run("drops whitespace-only paragraphs", func(t *testing.T) {
		text := "One.\n\n   \n\nTwo."
		result := chunker.ChunkText("doc-1", text)

		require.Len(t, result.Chunks, 2)
		assert.Equal(t, "One.", result.Chunks[0].Content)
		assert.Equal(t, "Two.", result.Chunks[1].Content)
	})

	t.Run("assigns contiguous indices from zero", func(t *testing.T) {
		text := "A.\n\nB.\n\nC.\n\nD."
		result := chunker.ChunkText("doc-1", text)

		require.Len(t, result.Chunks, 4)
		for i, c := range result.Chunks {
			assert.Equal(t, i, c.ChunkIndex)
		}
	})

	t.Run("offsets address the full text", func(t *testing.T) {
		text := "Article 1. Scope\n\nThe services are described in Exhibit A.\n\n(a) first deliverable"
		result := chunker.ChunkText("doc-1", text)

		require.NotEmpty(t, result.Chunks)
		for _, c := range result.Chunks {
			assert.Equal(t, len(c.Content), c.Position.CharEnd-c.Position.CharStart)
			assert.Equal(t, c.Content, result.FullText[c.Position.CharStart:c.Position.CharEnd])
			require.NoError(t, domain.ValidateChunk(&domain.Chunk{
				DocumentID: c.DocumentID,
				ChunkIndex: c.ChunkIndex,
				Content:    c.Content,
				Type:       c.Type,
				Position:   c.Position,
			}))
		}
	})

	t.Run("offsets advance by content length plus one newline", func(t *testing.T) {
		result := chunker.ChunkText("doc-1", "Para one.\n\nPara two.")

		require.Len(t, result.Chunks, 2)
		assert.Equal(t, 0, result.Chunks[0].Position.CharStart)
		assert.Equal(t, 9, result.Chunks[0].Position.CharEnd)
		assert.Equal(t, 10, result.Chunks[1].Position.CharStart)
		assert.Equal(t, 19, result.Chunks[1].Position.CharEnd)
		assert.Equal(t, "Para one.\nPara two.\n", result.FullText)
	})

	t.Run("re-splits long paragraphs on sentence boundaries", func(t *testing.T) {
		sentence := strings.Repeat("w", 300) + "."
		long := sentence + " " + sentence + " " + sentence + " " + sentence + " " + sentence
		result := chunker.ChunkText("doc-1", long)

		require.Greater(t, len(result.Chunks), 1)
		for _, c := range result.Chunks {
			// Accumulation stops once the running buffer passes the limit,
			// so a piece can exceed it by at most one sentence.
			assert.LessOrEqual(t, len(c.Content), 1000+len(sentence)+2)
		}
	})

	t.Run("is deterministic", func(t *testing.T) {
		text := "Article 1. Definitions\n\n\"Services\" means the work described below.\n\nSection 2 covers payment."
		first := chunker.ChunkText("doc-1", text)
		second := chunker.ChunkText("doc-1", text)

		assert.Equal(t, first.FullText, second.FullText)
		assert.Equal(t, first.Chunks, second.Chunks)
	})

	t.Run("empty text yields no chunks", func(t *testing.T) {
		result := chunker.ChunkText("doc-1", "")
		assert.Empty(t, result.Chunks)
		assert.Empty(t, result.FullText)
	})
}

func TestChunker_ChunkPages(t *testing.T) {
	chunker := NewChunker(DefaultChunkerConfig())

	t.Run("offsets run across pages", func(t *testing.T) {
		pages := []ExtractedPage{
			{Number: 1, Text: "Page one paragraph."},
			{Number: 2, Text: "Page two paragraph."},
		}
		result := chunker.ChunkPages("doc-1", pages)

		require.Len(t, result.Chunks, 2)
		assert.Equal(t, 1, result.Chunks[0].Position.PageNumber)
		assert.Equal(t, 2, result.Chunks[1].Position.PageNumber)
		assert.Equal(t, 0, result.Chunks[0].Position.CharStart)
		// Second chunk starts after the first chunk plus its newline.
		assert.Equal(t, result.Chunks[0].Position.CharEnd+1, result.Chunks[1].Position.CharStart)
		assert.Equal(t, 2, result.Stats.TotalPages)
		assert.Equal(t, 2, result.Stats.TotalParagraphs)
	})

	t.Run("heading style overrides text classification", func(t *testing.T) {
		pages := []ExtractedPage{{
			Number: 1,
			Paragraphs: []ExtractedParagraph{
				{Text: "Payment is due on receipt.", HeadingStyle: true},
				{Text: "Payment is due on receipt."},
			},
		}}
		result := chunker.ChunkPages("doc-1", pages)

		require.Len(t, result.Chunks, 2)
		assert.Equal(t, domain.ChunkTypeHeading, result.Chunks[0].Type)
		assert.Equal(t, domain.ChunkTypeParagraph, result.Chunks[1].Type)
	})

	t.Run("re-splits long pre-set paragraphs unless heading styled", func(t *testing.T) {
		sentence := strings.Repeat("x", 400) + "."
		long := sentence + " " + sentence + " " + sentence + " " + sentence
		pages := []ExtractedPage{{
			Number: 1,
			Paragraphs: []ExtractedParagraph{
				{Text: long},
				{Text: long, HeadingStyle: true},
			},
		}}
		result := chunker.ChunkPages("doc-1", pages)

		split := 0
		headings := 0
		for _, c := range result.Chunks {
			if c.Type == domain.ChunkTypeHeading {
				headings++
				assert.Equal(t, strings.TrimSpace(long), c.Content)
			} else {
				split++
			}
		}
		assert.Greater(t, split, 1)
		assert.Equal(t, 1, headings)
	})

	t.Run("defaults non-positive page numbers to one", func(t *testing.T) {
		result := chunker.ChunkPages("doc-1", []ExtractedPage{{Number: 0, Text: "Body."}})
		require.Len(t, result.Chunks, 1)
		assert.Equal(t, 1, result.Chunks[0].Position.PageNumber)
	})
}

func TestClassifyChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.ChunkType
	}{
		{"article heading", "Article 5: Termination", domain.ChunkTypeHeading},
		{"section heading", "Section 2.1 Payment Terms", domain.ChunkTypeHeading},
		{"clause heading", "Clause 7 Indemnity", domain.ChunkTypeHeading},
		{"clause reference mid-text", "Subject to the preceding clause, the supplier shall deliver.", domain.ChunkTypeClause},
		{"section reference mid-text", "As described in section 4 above, fees are payable monthly.", domain.ChunkTypeClause},
		{"definitions block", "Definitions used in this document are binding.", domain.ChunkTypeDefinition},
		{"for purposes of", "For purposes of this policy, employee includes contractors.", domain.ChunkTypeDefinition},
		{"lettered list item", "(a) deliver the software;", domain.ChunkTypeListItem},
		{"numbered list item", "1. Pay the invoice within thirty days.", domain.ChunkTypeListItem},
		{"plain paragraph", "The parties met in January to discuss the schedule.", domain.ChunkTypeParagraph},
		{"empty", "   ", domain.ChunkTypeParagraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyChunk(tt.text))
		})
	}
}
