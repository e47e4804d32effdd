//go:build e2e

package e2e

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

const sampleContract = `Services Agreement

Article 1. Definitions

"Confidential Information" means any non-public information disclosed by either party under this agreement, whether in written, oral, or electronic form.

"Services" means the consulting services described in the statement of work attached to this agreement.

Article 2. Term and Termination

This agreement shall commence on the effective date and continue for a period of twelve months. Either party may terminate this agreement with thirty days written notice to the other party.

Article 3. Payment Terms

The client shall pay all invoices within thirty days of receipt. Late payments shall accrue interest at a rate of one percent per month.

Article 4. Confidentiality

Each party must hold the other party's Confidential Information in strict confidence and must not disclose it to any third party without prior written consent.`

type documentData struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Filename   string `json:"filename"`
	FileType   string `json:"file_type"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
}

type chunkData struct {
	ID         string `json:"id"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
	Type       string `json:"type"`
	CharStart  int    `json:"char_start"`
	CharEnd    int    `json:"char_end"`
}

type searchData struct {
	Query        string `json:"query"`
	Intent       string `json:"intent"`
	TotalResults int    `json:"total_results"`
	Results      []struct {
		ChunkID       string  `json:"chunk_id"`
		DocumentID    string  `json:"document_id"`
		DocumentTitle string  `json:"document_title"`
		Content       string  `json:"content"`
		Type          string  `json:"type"`
		Similarity    float64 `json:"similarity"`
		Origin        string  `json:"origin"`
	} `json:"results"`
}

type answerData struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
	Sources    []struct {
		ChunkID    string  `json:"chunk_id"`
		DocumentID string  `json:"document_id"`
		Score      float64 `json:"score"`
		Excerpt    string  `json:"excerpt"`
	} `json:"sources"`
}

func TestDocumentLifecycle(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	// Upload
	resp, err := env.UploadDocument("Services Agreement", "services.txt", []byte(sampleContract))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	var doc documentData
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		t.Fatalf("failed to parse upload response: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected document ID")
	}
	if doc.Status != "uploaded" {
		t.Fatalf("expected status uploaded, got %s", doc.Status)
	}
	if doc.FileType != "txt" {
		t.Fatalf("expected file type txt, got %s", doc.FileType)
	}

	// Process
	env.DrainJobs()

	resp, err = env.Get("/documents/" + doc.ID)
	if err != nil {
		t.Fatalf("get document failed: %v", err)
	}
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		t.Fatalf("failed to parse document response: %v", err)
	}
	if doc.Status != "processed" {
		t.Fatalf("expected status processed, got %s", doc.Status)
	}
	if doc.ChunkCount == 0 {
		t.Fatal("expected nonzero chunk count")
	}

	// Chunks
	resp, err = env.Get("/documents/" + doc.ID + "/chunks")
	if err != nil {
		t.Fatalf("get chunks failed: %v", err)
	}
	var chunks []chunkData
	if err := json.Unmarshal(resp.Data, &chunks); err != nil {
		t.Fatalf("failed to parse chunks response: %v", err)
	}
	if len(chunks) != doc.ChunkCount {
		t.Fatalf("chunk count mismatch: %d vs %d", len(chunks), doc.ChunkCount)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("chunk %d has index %d", i, c.ChunkIndex)
		}
		if c.CharEnd-c.CharStart != len(c.Content) {
			t.Fatalf("chunk %d offsets do not cover content", i)
		}
	}
	headings := 0
	for _, c := range chunks {
		if c.Type == "heading" {
			headings++
		}
	}
	if headings < 4 {
		t.Fatalf("expected article headings, got %d", headings)
	}

	// List
	resp, err = env.Get("/documents?limit=10")
	if err != nil {
		t.Fatalf("list documents failed: %v", err)
	}
	var list struct {
		Documents []documentData `json:"documents"`
		HasMore   bool           `json:"has_more"`
	}
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		t.Fatalf("failed to parse list response: %v", err)
	}
	if len(list.Documents) != 1 {
		t.Fatalf("expected 1 document, got %d", len(list.Documents))
	}

	// Delete
	if _, err := env.Delete("/documents/" + doc.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := env.Get("/documents/" + doc.ID); err == nil {
		t.Fatal("expected not found after delete")
	}
}

func TestSearchAndAsk(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.UploadDocument("Services Agreement", "services.txt", []byte(sampleContract))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	var doc documentData
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		t.Fatalf("failed to parse upload response: %v", err)
	}
	env.DrainJobs()

	// Semantic search
	resp, err = env.Post("/search", map[string]interface{}{
		"query":          "termination notice period",
		"include_hybrid": true,
	})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	var search searchData
	if err := json.Unmarshal(resp.Data, &search); err != nil {
		t.Fatalf("failed to parse search response: %v", err)
	}
	if search.TotalResults == 0 {
		t.Fatal("expected search results")
	}
	seen := map[string]bool{}
	for _, r := range search.Results {
		if seen[r.ChunkID] {
			t.Fatalf("duplicate chunk %s in results", r.ChunkID)
		}
		seen[r.ChunkID] = true
		if r.DocumentID != doc.ID {
			t.Fatalf("unexpected document %s", r.DocumentID)
		}
	}

	// Advanced search classifies a definition query
	resp, err = env.Post("/search/advanced", map[string]interface{}{
		"query": "what does confidential information mean",
	})
	if err != nil {
		t.Fatalf("advanced search failed: %v", err)
	}
	if err := json.Unmarshal(resp.Data, &search); err != nil {
		t.Fatalf("failed to parse advanced search response: %v", err)
	}
	if search.Intent != "definition" {
		t.Fatalf("expected definition intent, got %s", search.Intent)
	}

	// Suggestions reflect logged queries
	resp, err = env.Get("/search/suggestions")
	if err != nil {
		t.Fatalf("suggestions failed: %v", err)
	}
	var sugg struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(resp.Data, &sugg); err != nil {
		t.Fatalf("failed to parse suggestions response: %v", err)
	}
	if len(sugg.Suggestions) == 0 {
		t.Fatal("expected logged queries in suggestions")
	}

	// Ask
	resp, err = env.Post("/ask", map[string]interface{}{
		"question": "how can the agreement be terminated",
	})
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	var answer answerData
	if err := json.Unmarshal(resp.Data, &answer); err != nil {
		t.Fatalf("failed to parse ask response: %v", err)
	}
	if answer.Answer == "" {
		t.Fatal("expected an answer")
	}
	if answer.Confidence <= 0 {
		t.Fatal("expected positive confidence")
	}
	if len(answer.Sources) == 0 {
		t.Fatal("expected answer sources")
	}
	for _, s := range answer.Sources {
		if s.DocumentID != doc.ID {
			t.Fatalf("unexpected source document %s", s.DocumentID)
		}
		if s.Excerpt == "" {
			t.Fatal("expected source excerpt")
		}
	}
}

func TestUploadValidation(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	// Unsupported extension
	if _, err := env.UploadDocument("Bad", "malware.exe", []byte("x")); err == nil {
		t.Fatal("expected unsupported file type error")
	} else if !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected 400, got %v", err)
	}

	// Empty file
	if _, err := env.UploadDocument("Empty", "empty.txt", nil); err == nil {
		t.Fatal("expected empty file error")
	}

	// Search without query
	if _, err := env.Post("/search", map[string]interface{}{"query": ""}); err == nil {
		t.Fatal("expected validation error for empty query")
	}

	// Unknown document
	if _, err := env.Get(fmt.Sprintf("/documents/%s", "00000000-0000-0000-0000-000000000000")); err == nil {
		t.Fatal("expected not found for unknown document")
	}
}
