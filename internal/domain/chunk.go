package domain

import (
	"fmt"
	"time"
)

// ChunkType classifies the structural role of a chunk within a legal document.
type ChunkType string

const (
	ChunkTypeHeading    ChunkType = "heading"
	ChunkTypeClause     ChunkType = "clause"
	ChunkTypeDefinition ChunkType = "definition"
	ChunkTypeListItem   ChunkType = "list_item"
	ChunkTypeParagraph  ChunkType = "paragraph"
)

// BoundingBox is an optional page-relative box for chunks extracted from
// paginated formats.
type BoundingBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Position locates a chunk inside its document. CharStart/CharEnd are offsets
// into the reconstructed full text, where each chunk contributes its content
// plus a single trailing newline.
type Position struct {
	PageNumber     int
	ParagraphIndex int
	CharStart      int
	CharEnd        int
	BBox           *BoundingBox
}

// Chunk is an immutable positionally-addressable slice of a document's text.
// ChunkIndex is contiguous and strictly increasing from 0 within a document.
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Content    string
	Type       ChunkType
	Position   Position
	Metadata   map[string]string
	Embedding  []float32
	// EmbeddingModel tags which encoder produced the vector.
	EmbeddingModel string
	CreatedAt      time.Time
}

// ValidateChunk validates a Chunk, including the offset invariant
// CharEnd - CharStart == len(Content).
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}
	if c.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}
	if c.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}
	if c.Content == "" {
		return fmt.Errorf("chunk Content is required")
	}
	if !IsValidChunkType(c.Type) {
		return ErrInvalidChunkType
	}
	if got := c.Position.CharEnd - c.Position.CharStart; got != len(c.Content) {
		return fmt.Errorf("chunk offsets span %d characters but content has %d", got, len(c.Content))
	}
	return nil
}

// IsValidChunkType reports whether t is one of the structural chunk types.
func IsValidChunkType(t ChunkType) bool {
	switch t {
	case ChunkTypeHeading, ChunkTypeClause, ChunkTypeDefinition,
		ChunkTypeListItem, ChunkTypeParagraph:
		return true
	}
	return false
}
