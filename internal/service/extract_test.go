package service

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(documentXML))
	require.NoError(t, err)

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestExtractor_Text(t *testing.T) {
	extractor := NewExtractor(nil)
	ctx := context.Background()

	t.Run("passes valid utf8 through", func(t *testing.T) {
		pages, err := extractor.Extract(ctx, []byte("First paragraph.\n\nSecond paragraph."), domain.FileTypeTXT)

		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, 1, pages[0].Number)
		assert.Equal(t, "First paragraph.\n\nSecond paragraph.", pages[0].Text)
		assert.Nil(t, pages[0].Paragraphs)
	})

	t.Run("decodes windows-1252 smart quotes", func(t *testing.T) {
		// 0x93/0x94 are curly quotes in Windows-1252 and invalid UTF-8.
		raw := []byte{'s', 'a', 'i', 'd', ' ', 0x93, 'y', 'e', 's', 0x94}
		pages, err := extractor.Extract(ctx, raw, domain.FileTypeTXT)

		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, "said “yes”", pages[0].Text)
	})

	t.Run("rejects content with embedded NUL bytes", func(t *testing.T) {
		_, err := extractor.Extract(ctx, []byte("PK\x00\x00binary"), domain.FileTypeTXT)
		assert.ErrorIs(t, err, domain.ErrUndecodableContent)
	})

	t.Run("rejects unsupported file types", func(t *testing.T) {
		_, err := extractor.Extract(ctx, []byte("data"), domain.FileType("exe"))
		assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	})
}

func TestExtractor_DOCX(t *testing.T) {
	extractor := NewExtractor(nil)
	ctx := context.Background()

	const documentXML = `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p>
      <w:pPr><w:pStyle w:val="Heading1"/></w:pPr>
      <w:r><w:t>Termination</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>Either party may end </w:t></w:r>
      <w:r><w:t>this agreement with notice.</w:t></w:r>
    </w:p>
    <w:p>
      <w:r><w:t>   </w:t></w:r>
    </w:p>
  </w:body>
</w:document>`

	t.Run("extracts paragraphs with heading styles", func(t *testing.T) {
		raw := buildDocx(t, documentXML)
		pages, err := extractor.Extract(ctx, raw, domain.FileTypeDOCX)

		require.NoError(t, err)
		require.Len(t, pages, 1)
		require.Len(t, pages[0].Paragraphs, 2)

		assert.Equal(t, "Termination", pages[0].Paragraphs[0].Text)
		assert.True(t, pages[0].Paragraphs[0].HeadingStyle)

		assert.Equal(t, "Either party may end this agreement with notice.", pages[0].Paragraphs[1].Text)
		assert.False(t, pages[0].Paragraphs[1].HeadingStyle)

		assert.Equal(t, "Termination\n\nEither party may end this agreement with notice.", pages[0].Text)
	})

	t.Run("heading styles flow through to chunk classification", func(t *testing.T) {
		raw := buildDocx(t, documentXML)
		pages, err := extractor.Extract(ctx, raw, domain.FileTypeDOCX)
		require.NoError(t, err)

		result := NewChunker(DefaultChunkerConfig()).ChunkPages("doc-1", pages)
		require.Len(t, result.Chunks, 2)
		assert.Equal(t, domain.ChunkTypeHeading, result.Chunks[0].Type)
		assert.Equal(t, domain.ChunkTypeParagraph, result.Chunks[1].Type)
	})

	t.Run("rejects archives without document.xml", func(t *testing.T) {
		var buf bytes.Buffer
		w := zip.NewWriter(&buf)
		f, err := w.Create("other.xml")
		require.NoError(t, err)
		_, err = f.Write([]byte("<x/>"))
		require.NoError(t, err)
		require.NoError(t, w.Close())

		_, err = extractor.Extract(ctx, buf.Bytes(), domain.FileTypeDOCX)
		assert.ErrorIs(t, err, domain.ErrUndecodableContent)
	})

	t.Run("rejects non-zip bytes", func(t *testing.T) {
		_, err := extractor.Extract(ctx, []byte("not a zip archive"), domain.FileTypeDOCX)
		assert.Error(t, err)
	})
}
