package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)

	token := EncodeCursor("doc-42", ts)
	require.NotEmpty(t, token)
	assert.NotContains(t, token, "|")

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "doc-42", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty token means first page", func(t *testing.T) {
		cursor, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Nil(t, cursor)
	})

	t.Run("rejects malformed tokens", func(t *testing.T) {
		for _, token := range []string{
			"%%%not base64%%%",
			"bm8tc2VwYXJhdG9y", // decodes but has no separator
			EncodeCursor("id-only", time.Time{}) + "trailing",
		} {
			_, err := DecodeCursor(token)
			assert.ErrorIs(t, err, ErrInvalidCursor, "token %q", token)
		}
	})

	t.Run("rejects unparseable timestamps", func(t *testing.T) {
		token := EncodeCursor("doc-1", time.Now())
		decoded, err := DecodeCursor(token)
		require.NoError(t, err)
		require.NotNil(t, decoded)

		_, err = DecodeCursor("ZG9jLTF8bm90LWEtdGltZQ") // "doc-1|not-a-time"
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})
}
