package service

import (
	"strings"

	"github.com/cloo-solutions/lexidx/internal/domain"
)

// ChunkerConfig controls paragraph splitting for document ingestion.
type ChunkerConfig struct {
	// MaxParagraphChars is the length above which a paragraph candidate is
	// re-split on sentence boundaries.
	MaxParagraphChars int
}

// DefaultChunkerConfig provides sane defaults for chunking.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{MaxParagraphChars: 1000}
}

// ChunkStats summarizes one chunking run.
type ChunkStats struct {
	TotalPages       int
	TotalParagraphs  int
	ExtractionMethod string
}

// ChunkResult is the output of chunking a document.
// FullText is the reconstruction consumers byte-slice with the stored chunk
// offsets: every chunk contributes its content plus one trailing newline.
type ChunkResult struct {
	FullText string
	Chunks   []domain.Chunk
	Stats    ChunkStats
}

// ExtractedParagraph is a paragraph produced by a structure-aware extractor.
// HeadingStyle carries the document-native heading signal, which takes
// priority over the text heuristic.
type ExtractedParagraph struct {
	Text         string
	HeadingStyle bool
}

// ExtractedPage is one physical page of extracted text. For formats without
// native pagination there is a single page numbered 1. When Paragraphs is
// set the extractor already split the page; otherwise Text is split here.
type ExtractedPage struct {
	Number     int
	Text       string
	Paragraphs []ExtractedParagraph
}

// Chunker splits extracted document text into position-tagged, classified
// chunks.
type Chunker struct {
	cfg ChunkerConfig
}

// NewChunker creates a Chunker with the given configuration.
func NewChunker(cfg ChunkerConfig) *Chunker {
	if cfg.MaxParagraphChars <= 0 {
		cfg = DefaultChunkerConfig()
	}
	return &Chunker{cfg: cfg}
}

// ChunkPages chunks a sequence of extracted pages into ordered chunks with
// contiguous indices and running char offsets into the rebuilt full text.
func (c *Chunker) ChunkPages(documentID string, pages []ExtractedPage) ChunkResult {
	var (
		full       strings.Builder
		chunks     []domain.Chunk
		paragraphs int
	)

	for _, page := range pages {
		pageNumber := page.Number
		if pageNumber <= 0 {
			pageNumber = 1
		}

		var candidates []ExtractedParagraph
		if page.Paragraphs == nil {
			for _, text := range c.splitIntoParagraphs(page.Text) {
				candidates = append(candidates, ExtractedParagraph{Text: text})
			}
		} else {
			for _, para := range page.Paragraphs {
				if len(para.Text) > c.cfg.MaxParagraphChars && !para.HeadingStyle {
					for _, piece := range c.splitLongParagraph(para.Text) {
						candidates = append(candidates, ExtractedParagraph{Text: piece})
					}
					continue
				}
				candidates = append(candidates, para)
			}
		}

		for paraIdx, para := range candidates {
			text := strings.TrimSpace(para.Text)
			if text == "" {
				continue
			}
			paragraphs++

			chunkType := classifyChunk(text)
			if para.HeadingStyle {
				chunkType = domain.ChunkTypeHeading
			}

			start := full.Len()
			chunk := domain.Chunk{
				DocumentID: documentID,
				ChunkIndex: len(chunks),
				Content:    text,
				Type:       chunkType,
				Position: domain.Position{
					PageNumber:     pageNumber,
					ParagraphIndex: paraIdx,
					CharStart:      start,
					CharEnd:        start + len(text),
				},
				Metadata: map[string]string{},
			}
			chunks = append(chunks, chunk)

			full.WriteString(text)
			full.WriteByte('\n')
		}
	}

	return ChunkResult{
		FullText: full.String(),
		Chunks:   chunks,
		Stats: ChunkStats{
			TotalPages:      len(pages),
			TotalParagraphs: paragraphs,
		},
	}
}

// ChunkText chunks a single unpaginated body of text.
func (c *Chunker) ChunkText(documentID, text string) ChunkResult {
	return c.ChunkPages(documentID, []ExtractedPage{{Number: 1, Text: text}})
}

// splitIntoParagraphs splits text on blank-line boundaries. Candidates longer
// than MaxParagraphChars are re-split on sentence boundaries, accumulating a
// running buffer until the threshold is met. Whitespace-only candidates are
// dropped.
func (c *Chunker) splitIntoParagraphs(text string) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		if len(para) > c.cfg.MaxParagraphChars {
			out = append(out, c.splitLongParagraph(para)...)
			continue
		}
		trimmed := strings.TrimSpace(para)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (c *Chunker) splitLongParagraph(para string) []string {
	var out []string
	var current strings.Builder

	for _, sentence := range strings.Split(para, ". ") {
		if current.Len()+len(sentence) > c.cfg.MaxParagraphChars && current.Len() > 0 {
			if chunk := strings.TrimSpace(current.String()); chunk != "" {
				out = append(out, chunk)
			}
			current.Reset()
		}
		current.WriteString(sentence)
		current.WriteString(". ")
	}
	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

// classificationRule pairs a predicate with the chunk type it assigns.
type classificationRule struct {
	match func(lower string) bool
	tag   domain.ChunkType
}

var structureKeywords = []string{"article", "section", "clause", "paragraph"}

var enumeratorPrefixes = []string{"(a)", "(b)", "(1)", "(2)", "a.", "b.", "1.", "2."}

// classificationRules are evaluated top to bottom; the first match wins.
var classificationRules = []classificationRule{
	{
		match: func(lower string) bool {
			return containsAny(lower, structureKeywords) &&
				hasAnyPrefix(lower, "article", "section", "clause")
		},
		tag: domain.ChunkTypeHeading,
	},
	{
		match: func(lower string) bool { return containsAny(lower, structureKeywords) },
		tag:   domain.ChunkTypeClause,
	},
	{
		match: func(lower string) bool {
			return strings.Contains(lower, "definitions") || strings.HasPrefix(lower, "for purposes of")
		},
		tag: domain.ChunkTypeDefinition,
	},
	{
		match: func(lower string) bool { return hasAnyPrefix(lower, enumeratorPrefixes...) },
		tag:   domain.ChunkTypeListItem,
	},
}

// classifyChunk assigns a structural type using ordered heuristic rules for
// legal text; paragraph is the default.
func classifyChunk(text string) domain.ChunkType {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, rule := range classificationRules {
		if rule.match(lower) {
			return rule.tag
		}
	}
	return domain.ChunkTypeParagraph
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
