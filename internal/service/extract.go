package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/lexidx/internal/domain"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"
)

// OCRFallback recognizes text on a page when direct extraction yields
// nothing, typically for scanned pages. Implementations are optional.
type OCRFallback interface {
	RecognizePage(ctx context.Context, raw []byte, pageNumber int) (string, error)
}

// Extractor turns raw uploaded bytes into pages of paragraphs ready for
// chunking.
type Extractor struct {
	ocr OCRFallback
}

// NewExtractor creates an Extractor. ocr may be nil to disable the scanned
// page fallback.
func NewExtractor(ocr OCRFallback) *Extractor {
	return &Extractor{ocr: ocr}
}

// Extract dispatches on file type and returns the document's pages. Plain
// text and docx yield a single logical page.
func (e *Extractor) Extract(ctx context.Context, raw []byte, fileType domain.FileType) ([]ExtractedPage, error) {
	switch fileType {
	case domain.FileTypeTXT:
		return e.extractText(raw)
	case domain.FileTypePDF:
		return e.extractPDF(ctx, raw)
	case domain.FileTypeDOCX:
		return e.extractDOCX(raw)
	default:
		return nil, domain.ErrUnsupportedFileType
	}
}

// extractText decodes the bytes as UTF-8, falling back to Windows-1252 and
// then Latin-1. Bytes with embedded NULs are treated as binary.
func (e *Extractor) extractText(raw []byte) ([]ExtractedPage, error) {
	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, domain.ErrUndecodableContent
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	return []ExtractedPage{textPage(1, text)}, nil
}

func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw); err == nil {
		return string(decoded), nil
	}
	if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
		return string(decoded), nil
	}
	return "", domain.ErrUndecodableContent
}

func (e *Extractor) extractPDF(ctx context.Context, raw []byte) ([]ExtractedPage, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	pages := make([]ExtractedPage, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			log.Printf("pdf page %d text extraction failed: %v", i, err)
			text = ""
		}
		text = strings.TrimSpace(text)

		if text == "" && e.ocr != nil {
			recognized, ocrErr := e.ocr.RecognizePage(ctx, raw, i)
			if ocrErr != nil {
				log.Printf("ocr fallback failed on page %d: %v", i, ocrErr)
			} else {
				text = strings.TrimSpace(recognized)
			}
		}
		if text == "" {
			continue
		}

		pages = append(pages, textPage(i, text))
	}
	return pages, nil
}

// docx XML structures, limited to the elements the extractor reads.
type docxDocument struct {
	Body docxBody `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Properties docxParaProps `xml:"pPr"`
	Runs       []docxRun     `xml:"r"`
}

type docxParaProps struct {
	Style docxStyle `xml:"pStyle"`
}

type docxStyle struct {
	Val string `xml:"val,attr"`
}

type docxRun struct {
	Text []string `xml:"t"`
}

// extractDOCX reads word/document.xml from the archive. Paragraph heading
// styles carry through so chunk classification can honor them.
func (e *Extractor) extractDOCX(raw []byte) ([]ExtractedPage, error) {
	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to open docx archive: %w", err)
	}

	var docXML []byte
	for _, f := range archive.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open document.xml: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read document.xml: %w", err)
		}
		break
	}
	if docXML == nil {
		return nil, domain.ErrUndecodableContent
	}

	var doc docxDocument
	if err := xml.Unmarshal(docXML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document.xml: %w", err)
	}

	var (
		paragraphs []ExtractedParagraph
		texts      []string
	)
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, run := range p.Runs {
			for _, t := range run.Text {
				sb.WriteString(t)
			}
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		paragraphs = append(paragraphs, ExtractedParagraph{
			Text:         text,
			HeadingStyle: strings.HasPrefix(p.Properties.Style.Val, "Heading"),
		})
		texts = append(texts, text)
	}

	return []ExtractedPage{{
		Number:     1,
		Text:       strings.Join(texts, "\n\n"),
		Paragraphs: paragraphs,
	}}, nil
}

// textPage builds a page whose paragraph boundaries are left to the chunker.
func textPage(number int, text string) ExtractedPage {
	return ExtractedPage{Number: number, Text: text}
}
