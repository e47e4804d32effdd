package service

import (
	"crypto/md5"
	"encoding/hex"
	"math"
	"strings"
)

// EmbeddingModelTag identifies the feature-vector construction stored
// alongside each chunk embedding.
const EmbeddingModelTag = "text-features-v1"

// DefaultEmbeddingDimension is the default feature vector length.
const DefaultEmbeddingDimension = 768

// legalContext is prefixed to query text so queries and chunks share a
// feature space.
const legalContext = "This content is from legal documents including contracts, agreements, policies, and regulations. " +
	"Focus on legal concepts, clauses, obligations, definitions, and contractual relationships."

// legalKeywords is the fixed vocabulary whose presence flags form one block
// of the feature vector. Order matters for reproducibility.
var legalKeywords = []string{
	"agreement", "contract", "clause", "obligation", "liability", "terms",
	"conditions", "warranty", "indemnification", "breach", "termination",
	"confidentiality", "intellectual property", "damages", "jurisdiction",
	"governing law", "force majeure", "assignment", "modification",
}

// Encoder converts text into a fixed-length normalized feature vector. The
// default implementation is deterministic and hand-built; a learned embedding
// backend can be substituted without touching the search engine.
type Encoder interface {
	Encode(text string) []float32
	EncodeQuery(query string) []float32
	Dimension() int
}

// FeatureEncoder is the deterministic text-feature implementation of Encoder.
// It is pure: no I/O, no randomness, identical input yields identical output.
// It makes no semantic similarity guarantee beyond what the construction
// yields; the hash block only distinguishes near-duplicate texts.
type FeatureEncoder struct {
	dimension int
}

// NewFeatureEncoder creates a FeatureEncoder with the given dimension.
func NewFeatureEncoder(dimension int) *FeatureEncoder {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}
	return &FeatureEncoder{dimension: dimension}
}

// Dimension returns the length of every vector this encoder produces.
func (e *FeatureEncoder) Dimension() int {
	return e.dimension
}

// Encode builds the feature vector for text. Empty text yields the zero
// vector; every other input yields a vector with Euclidean norm 1.
//
// Construction order is fixed: length scalars, keyword flags, punctuation
// densities, average word length, hash-derived scalars, then pad/truncate to
// the dimension and normalize.
func (e *FeatureEncoder) Encode(text string) []float32 {
	features := make([]float32, 0, e.dimension)
	if strings.TrimSpace(text) == "" {
		return make([]float32, e.dimension)
	}

	lower := strings.ToLower(text)
	words := strings.Fields(lower)

	// 1. Length features, clamped to [0,1].
	features = append(features,
		clamp01(float32(len(text))/1000.0),
		clamp01(float32(len(words))/100.0),
		clamp01(float32(len(strings.Split(text, ".")))/20.0),
	)

	// 2. Legal keyword presence flags.
	for _, keyword := range legalKeywords {
		if strings.Contains(lower, keyword) {
			features = append(features, 1.0)
		} else {
			features = append(features, 0.0)
		}
	}

	// 3. Punctuation densities.
	length := float32(len(text))
	features = append(features,
		float32(strings.Count(lower, ","))/length,
		float32(strings.Count(lower, ";"))/length,
		float32(strings.Count(lower, "("))/length,
		float32(strings.Count(lower, `"`))/length,
	)

	// 4. Average word length.
	if len(words) > 0 {
		var total int
		for _, w := range words {
			total += len(w)
		}
		avg := float32(total) / float32(len(words))
		features = append(features, clamp01(avg/10.0))
	} else {
		features = append(features, 0.0)
	}

	// 5. Hash-derived scalars: hex digit pairs of the md5 digest mapped to
	// [0,1]. Not a semantic signal.
	digest := md5.Sum([]byte(text))
	hexDigest := hex.EncodeToString(digest[:])
	for i := 0; i+2 <= len(hexDigest); i += 2 {
		var b byte
		raw, err := hex.DecodeString(hexDigest[i : i+2])
		if err == nil && len(raw) == 1 {
			b = raw[0]
		}
		features = append(features, float32(b)/255.0)
	}

	// Pad or truncate to the configured dimension.
	for len(features) < e.dimension {
		features = append(features, 0.0)
	}
	features = features[:e.dimension]

	return normalize(features)
}

// EncodeQuery encodes a search query in the same feature space as chunk
// content by prefixing the fixed legal context string.
func (e *FeatureEncoder) EncodeQuery(query string) []float32 {
	if strings.TrimSpace(query) == "" {
		return make([]float32, e.dimension)
	}
	return e.Encode(legalContext + "\n\nLegal Query: " + query)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	magnitude := math.Sqrt(sum)
	if magnitude == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / magnitude)
	}
	return v
}

func clamp01(f float32) float32 {
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
