package service

import (
	"strings"

	"github.com/cloo-solutions/lexidx/internal/domain"
)

// QueryIntent is the dominant intent class of a user query.
type QueryIntent string

const (
	IntentDefinition  QueryIntent = "definition"
	IntentProcedure   QueryIntent = "procedure"
	IntentTimeline    QueryIntent = "timeline"
	IntentConsequence QueryIntent = "consequence"
	IntentComparison  QueryIntent = "comparison"
	IntentGeneral     QueryIntent = "general"
)

// QueryAnalysis is the result of optimizing a query for legal search.
type QueryAnalysis struct {
	OriginalQuery    string
	ExpandedQuery    string
	Intent           QueryIntent
	LegalConcepts    []string
	SuggestedFilters []domain.ChunkType
}

// intentRule maps trigger phrases to an intent and its expansion terms.
// Rules are evaluated in order; the first trigger match wins.
type intentRule struct {
	intent     QueryIntent
	triggers   []string
	expansions []string
}

var intentRules = []intentRule{
	{
		intent:     IntentDefinition,
		triggers:   []string{"what is", "define", "meaning of", "definition"},
		expansions: []string{"definition", "meaning", "interpretation"},
	},
	{
		intent:     IntentProcedure,
		triggers:   []string{"how to", "process for", "steps to", "procedure"},
		expansions: []string{"process", "procedure", "steps", "requirements"},
	},
	{
		intent:     IntentTimeline,
		triggers:   []string{"when", "deadline", "period", "duration"},
		expansions: []string{"deadline", "period", "duration", "timeframe"},
	},
	{
		intent:     IntentConsequence,
		triggers:   []string{"what happens", "penalty for", "result of", "consequence"},
		expansions: []string{"consequence", "result", "outcome", "penalty"},
	},
	{
		intent:     IntentComparison,
		triggers:   []string{"difference between", "compare", "versus", "vs"},
		expansions: []string{"comparison", "difference", "distinction"},
	},
}

// legalSynonyms maps a legal concept to related terms appended when the
// concept (or one of its synonyms) appears in the query.
var legalSynonyms = map[string][]string{
	"contract":        {"agreement", "accord", "pact"},
	"clause":          {"provision", "section", "article"},
	"obligation":      {"duty", "responsibility", "requirement"},
	"termination":     {"cancellation", "ending", "expiration"},
	"liability":       {"responsibility", "accountability", "fault"},
	"breach":          {"violation", "default", "non-compliance"},
	"amendment":       {"modification", "revision", "alteration"},
	"confidentiality": {"non-disclosure", "secrecy", "privacy"},
	"indemnification": {"compensation", "reimbursement", "coverage"},
	"warranty":        {"guarantee", "assurance", "representation"},
}

// conceptOrder fixes iteration order over legalSynonyms so expansion output
// is deterministic.
var conceptOrder = []string{
	"contract", "clause", "obligation", "termination", "liability",
	"breach", "amendment", "confidentiality", "indemnification", "warranty",
}

// QueryOptimizer classifies query intent and expands terms to improve search
// recall. The expanded string, not the raw query, is what gets embedded.
type QueryOptimizer struct{}

// NewQueryOptimizer creates a QueryOptimizer.
func NewQueryOptimizer() *QueryOptimizer {
	return &QueryOptimizer{}
}

// Optimize analyzes and expands a query. The expansion appends intent-specific
// and concept-specific terms plus a fixed legal-context tail.
func (o *QueryOptimizer) Optimize(query string) QueryAnalysis {
	lower := strings.ToLower(strings.TrimSpace(query))

	analysis := QueryAnalysis{
		OriginalQuery: query,
		Intent:        IntentGeneral,
	}

	var expansions []string
	for _, rule := range intentRules {
		if containsAny(lower, rule.triggers) {
			analysis.Intent = rule.intent
			expansions = append(expansions, rule.expansions...)
			break
		}
	}

	for _, concept := range conceptOrder {
		synonyms := legalSynonyms[concept]
		if strings.Contains(lower, concept) || containsAny(lower, synonyms) {
			analysis.LegalConcepts = append(analysis.LegalConcepts, concept)
			expansions = append(expansions, synonyms...)
		}
	}

	analysis.SuggestedFilters = suggestedFilters(analysis.Intent)
	analysis.ExpandedQuery = expandQuery(query, expansions)

	return analysis
}

func suggestedFilters(intent QueryIntent) []domain.ChunkType {
	switch intent {
	case IntentDefinition:
		return []domain.ChunkType{domain.ChunkTypeDefinition}
	case IntentProcedure, IntentTimeline:
		return []domain.ChunkType{domain.ChunkTypeClause, domain.ChunkTypeParagraph}
	default:
		return nil
	}
}

func expandQuery(query string, expansions []string) string {
	const contextTail = "legal document contract agreement clause"

	seen := make(map[string]struct{})
	lowerQuery := strings.ToLower(query)
	var unique []string
	for _, term := range expansions {
		if strings.Contains(lowerQuery, term) {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		unique = append(unique, term)
	}

	if len(unique) == 0 {
		return query + " " + contextTail
	}
	return query + " " + strings.Join(unique, " ") + " " + contextTail
}
