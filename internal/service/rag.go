package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/cloo-solutions/lexidx/internal/telemetry"
)

const (
	// DefaultContextCharBudget bounds the total chunk content sent to the
	// generation model.
	DefaultContextCharBudget = 4000

	// DefaultContextChunkLimit bounds the number of chunks in a prompt.
	DefaultContextChunkLimit = 5

	noAnswerText = "I was unable to find relevant information in the available documents to answer your question."
)

var crossRefTerms = []string{
	"shall", "must", "may", "will",
	"agreement", "contract", "party", "clause", "provision",
}

// GenerationClient produces an answer from an assembled prompt.
type GenerationClient interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

// AskRequest is a question with optional retrieval filters and per-request
// tuning. ContextLimit caps the chunks assembled into the prompt and
// Threshold overrides the retrieval similarity floor; zero values fall back
// to the configured defaults.
type AskRequest struct {
	Question     string
	Filters      SearchFilters
	ContextLimit int
	Threshold    float64
}

// SourceRef identifies a chunk that contributed context to an answer.
type SourceRef struct {
	ChunkID       string  `json:"chunk_id"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	ChunkIndex    int     `json:"chunk_index"`
	PageNumber    int     `json:"page_number,omitempty"`
	Score         float64 `json:"score"`
	Excerpt       string  `json:"excerpt"`
}

// Answer is the output of a question-answering request.
type Answer struct {
	Question        string      `json:"question"`
	Text            string      `json:"answer"`
	Confidence      float64     `json:"confidence"`
	Sources         []SourceRef `json:"sources"`
	CrossReferences []string    `json:"cross_references,omitempty"`
	ElapsedMS       int64       `json:"elapsed_ms"`
}

// RAGConfig holds the answerer's tunable constants.
type RAGConfig struct {
	ContextCharBudget int
	ContextChunkLimit int
	SearchLimit       int
	SearchThreshold   float64
}

// DefaultRAGConfig returns the default answering configuration.
func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		ContextCharBudget: DefaultContextCharBudget,
		ContextChunkLimit: DefaultContextChunkLimit,
		SearchLimit:       10,
		SearchThreshold:   0.6,
	}
}

// RAGService answers questions by retrieving chunks through the search
// engine and prompting a generation model with the selected context.
type RAGService struct {
	engine    *SearchEngine
	generator GenerationClient
	cfg       RAGConfig
}

// NewRAGService creates a RAGService.
func NewRAGService(engine *SearchEngine, generator GenerationClient, cfg RAGConfig) *RAGService {
	if cfg.ContextCharBudget <= 0 {
		cfg = DefaultRAGConfig()
	}
	return &RAGService{engine: engine, generator: generator, cfg: cfg}
}

// Ask retrieves context for the question and generates a grounded answer.
// When retrieval yields nothing the model is not called and confidence is 0.
func (s *RAGService) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	ctx, span := telemetry.StartSpan(ctx, "RAGService.Ask", telemetry.SpanAttributes{
		Operation: "ask",
	})
	defer span.End()

	start := time.Now()
	question := strings.TrimSpace(req.Question)

	contextLimit := req.ContextLimit
	if contextLimit <= 0 {
		contextLimit = s.cfg.ContextChunkLimit
	}
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = s.cfg.SearchThreshold
	}

	resp := s.engine.SearchAdvanced(ctx, SearchRequest{
		Query:         question,
		Filters:       req.Filters,
		Limit:         s.cfg.SearchLimit,
		Threshold:     threshold,
		IncludeHybrid: true,
	})

	if len(resp.Results) == 0 {
		return &Answer{
			Question:   question,
			Text:       noAnswerText,
			Confidence: 0.0,
			Sources:    []SourceRef{},
			ElapsedMS:  time.Since(start).Milliseconds(),
		}, nil
	}

	selected := s.selectContext(resp.Results, contextLimit)
	prompt := s.buildPrompt(question, selected)

	text, err := s.generator.GenerateAnswer(ctx, prompt)
	if err != nil {
		log.Printf("answer generation failed: %v", err)
		text = "I found relevant passages but was unable to generate an answer. Please review the sources below."
	}

	answer := &Answer{
		Question:        question,
		Text:            text,
		Confidence:      s.confidence(text, selected, err),
		Sources:         sourceRefs(selected),
		CrossReferences: crossReferences(selected),
		ElapsedMS:       time.Since(start).Milliseconds(),
	}
	return answer, nil
}

// selectContext greedily takes the highest-scored hits while they fit within
// the chunk and character budgets. Hits arrive score-ordered from the engine.
func (s *RAGService) selectContext(hits []*domain.ChunkHit, chunkLimit int) []*domain.ChunkHit {
	var selected []*domain.ChunkHit
	used := 0
	for _, hit := range hits {
		if len(selected) >= chunkLimit {
			break
		}
		if used+len(hit.Content) > s.cfg.ContextCharBudget {
			continue
		}
		selected = append(selected, hit)
		used += len(hit.Content)
	}
	return selected
}

// buildPrompt assembles the instruction, the context grouped by source
// document, and the question.
func (s *RAGService) buildPrompt(question string, hits []*domain.ChunkHit) string {
	var b strings.Builder
	b.WriteString("You are a legal document assistant. Answer the question using only the provided document excerpts. ")
	b.WriteString("Cite the document titles you rely on. If the excerpts do not contain the answer, say so.\n\n")

	byDoc := make(map[string][]*domain.ChunkHit)
	var docOrder []string
	for _, hit := range hits {
		if _, ok := byDoc[hit.DocumentTitle]; !ok {
			docOrder = append(docOrder, hit.DocumentTitle)
		}
		byDoc[hit.DocumentTitle] = append(byDoc[hit.DocumentTitle], hit)
	}

	for _, title := range docOrder {
		fmt.Fprintf(&b, "Document: %s\n", title)
		group := byDoc[title]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].ChunkIndex < group[j].ChunkIndex
		})
		for _, hit := range group {
			fmt.Fprintf(&b, "[%s] %s\n", hit.Type, hit.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)
	return b.String()
}

// confidence estimates answer quality from retrieval scores and answer shape.
// Base 0.5; up to +0.3 for high-scoring context; +0.1 for a substantive,
// citing answer; +0.1 when context spans multiple documents. Generation
// failure caps it at the base level of the retrieved evidence.
func (s *RAGService) confidence(text string, hits []*domain.ChunkHit, genErr error) float64 {
	confidence := 0.5

	highQuality := 0.0
	for _, hit := range hits {
		if hit.Score() > 0.8 {
			highQuality += 0.1
		}
	}
	if highQuality > 0.3 {
		highQuality = 0.3
	}
	confidence += highQuality

	if genErr == nil && len(text) > 100 && strings.Contains(strings.ToLower(text), "document") {
		confidence += 0.1
	}

	docs := make(map[string]struct{})
	for _, hit := range hits {
		docs[hit.DocumentID] = struct{}{}
	}
	if len(docs) > 1 {
		confidence += 0.1
	}

	return clampScore(confidence)
}

// crossReferences surfaces sentences from the selected context that carry
// obligation or contract vocabulary, capped at three.
func crossReferences(hits []*domain.ChunkHit) []string {
	const maxRefs = 3

	var refs []string
	seen := make(map[string]struct{})
	for _, hit := range hits {
		for _, sentence := range strings.Split(hit.Content, ". ") {
			sentence = strings.TrimSpace(sentence)
			if len(sentence) < 20 {
				continue
			}
			lower := strings.ToLower(sentence)
			for _, term := range crossRefTerms {
				if strings.Contains(lower, term) {
					if _, ok := seen[sentence]; !ok {
						seen[sentence] = struct{}{}
						refs = append(refs, sentence)
					}
					break
				}
			}
			if len(refs) >= maxRefs {
				return refs
			}
		}
	}
	return refs
}

func sourceRefs(hits []*domain.ChunkHit) []SourceRef {
	refs := make([]SourceRef, 0, len(hits))
	for _, hit := range hits {
		excerpt := hit.Content
		if len(excerpt) > 200 {
			excerpt = excerpt[:200] + "..."
		}
		refs = append(refs, SourceRef{
			ChunkID:       hit.ChunkID,
			DocumentID:    hit.DocumentID,
			DocumentTitle: hit.DocumentTitle,
			ChunkIndex:    hit.ChunkIndex,
			PageNumber:    hit.PageNumber,
			Score:         hit.Score(),
			Excerpt:       excerpt,
		})
	}
	return refs
}
