package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func TestFeatureEncoder_Encode(t *testing.T) {
	encoder := NewFeatureEncoder(768)

	t.Run("produces vectors of the configured dimension", func(t *testing.T) {
		v := encoder.Encode("The contract includes a termination clause.")
		assert.Len(t, v, 768)
		assert.Equal(t, 768, encoder.Dimension())
	})

	t.Run("normalizes to unit length", func(t *testing.T) {
		v := encoder.Encode("Each party shall indemnify the other against third party claims.")
		assert.InDelta(t, 1.0, vectorNorm(v), 1e-5)
	})

	t.Run("is deterministic", func(t *testing.T) {
		text := "This agreement is governed by the laws of Delaware."
		assert.Equal(t, encoder.Encode(text), encoder.Encode(text))
	})

	t.Run("empty text yields the zero vector", func(t *testing.T) {
		for _, text := range []string{"", "   ", "\n\t"} {
			v := encoder.Encode(text)
			require.Len(t, v, 768)
			assert.Zero(t, vectorNorm(v))
		}
	})

	t.Run("distinguishes different texts", func(t *testing.T) {
		a := encoder.Encode("The warranty period is one year.")
		b := encoder.Encode("Confidential information must not be disclosed.")
		assert.NotEqual(t, a, b)
	})

	t.Run("keyword presence changes the vector", func(t *testing.T) {
		with := encoder.Encode("the indemnification terms apply here")
		without := encoder.Encode("the reimbursement terms apply here")
		assert.NotEqual(t, with, without)
	})

	t.Run("small dimensions truncate and stay normalized", func(t *testing.T) {
		small := NewFeatureEncoder(8)
		v := small.Encode("A short clause about liability.")
		require.Len(t, v, 8)
		assert.InDelta(t, 1.0, vectorNorm(v), 1e-5)
	})

	t.Run("non-positive dimension falls back to the default", func(t *testing.T) {
		e := NewFeatureEncoder(0)
		assert.Equal(t, DefaultEmbeddingDimension, e.Dimension())
	})
}

func TestFeatureEncoder_EncodeQuery(t *testing.T) {
	encoder := NewFeatureEncoder(768)

	t.Run("query vectors live in the same space", func(t *testing.T) {
		v := encoder.EncodeQuery("termination notice period")
		require.Len(t, v, 768)
		assert.InDelta(t, 1.0, vectorNorm(v), 1e-5)
	})

	t.Run("empty query yields the zero vector", func(t *testing.T) {
		v := encoder.EncodeQuery("  ")
		assert.Zero(t, vectorNorm(v))
	})

	t.Run("query encoding differs from raw content encoding", func(t *testing.T) {
		q := "termination notice period"
		assert.NotEqual(t, encoder.Encode(q), encoder.EncodeQuery(q))
	})

	t.Run("is deterministic", func(t *testing.T) {
		q := "what is the governing law"
		assert.Equal(t, encoder.EncodeQuery(q), encoder.EncodeQuery(q))
	})
}
