// internal/processor/pdf.go
package processor

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"balance-sheet-rag/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultChunkSize is the window size used when none is configured
	DefaultChunkSize = 1000
	// DefaultOverlap is the overlap used when none is configured
	DefaultOverlap = 200
)

var spaceRe = regexp.MustCompile(`\s+`)

// PageSource gives random access to the extracted text of a document's pages.
type PageSource interface {
	NumPages() int
	// PageText returns the text of the 0-based page, or "" when unreadable.
	PageText(index int) string
}

// PDFReader extracts page text from a PDF file
type PDFReader struct {
	file   *os.File
	reader *pdf.Reader
}

// OpenPDF opens a PDF file for page extraction. The caller must Close it.
func OpenPDF(path string) (*PDFReader, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return &PDFReader{file: f, reader: r}, nil
}

// NumPages returns the number of pages in the document.
func (p *PDFReader) NumPages() int {
	return p.reader.NumPage()
}

// PageText extracts the plain text of one page. Image-only or malformed
// pages yield an empty string.
func (p *PDFReader) PageText(index int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Int("page", index+1).Interface("panic", r).Msg("pdf page extraction panicked")
			text = ""
		}
	}()

	page := p.reader.Page(index + 1)
	if page.V.IsNull() {
		return ""
	}

	content, err := page.GetPlainText(nil)
	if err != nil {
		log.Warn().Err(err).Int("page", index+1).Msg("failed to extract page text")
		return ""
	}
	return content
}

// Close releases the underlying file.
func (p *PDFReader) Close() error {
	return p.file.Close()
}

// PDFProcessor turns extracted pages into chunks
type PDFProcessor struct {
	ChunkSize    int
	ChunkOverlap int
}

// NewPDFProcessor creates a new PDF processor
func NewPDFProcessor(chunkSize, chunkOverlap int) *PDFProcessor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultOverlap
	}

	return &PDFProcessor{
		ChunkSize:    chunkSize,
		ChunkOverlap: chunkOverlap,
	}
}

// ChunkPages splits every page of src into chunks. Chunk indexes restart at
// zero on each page; embeddings are left empty.
func (p *PDFProcessor) ChunkPages(documentID int64, src PageSource) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for i := 0; i < src.NumPages(); i++ {
		text := normalizeWhitespace(src.PageText(i))
		if text == "" {
			continue
		}

		windows, err := Chunk(text, p.ChunkSize, p.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("failed to chunk page %d: %w", i+1, err)
		}

		for idx, w := range windows {
			chunks = append(chunks, models.Chunk{
				DocumentID: documentID,
				PageNumber: i + 1,
				ChunkIndex: idx,
				Text:       w,
			})
		}
	}

	return chunks, nil
}

// normalizeWhitespace collapses runs of whitespace into single spaces
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

// findPagesWithKeywords returns the 0-based indexes of pages mentioning any keyword.
func findPagesWithKeywords(src PageSource, keywords []string) []int {
	var indices []int
	for i := 0; i < src.NumPages(); i++ {
		lower := strings.ToLower(src.PageText(i))
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				indices = append(indices, i)
				break
			}
		}
	}
	return indices
}

// Pages is an in-memory PageSource.
type Pages []string

// NumPages returns the number of pages.
func (p Pages) NumPages() int { return len(p) }

// PageText returns the text of the 0-based page.
func (p Pages) PageText(index int) string {
	if index < 0 || index >= len(p) {
		return ""
	}
	return p[index]
}

// ReadPages extracts every page of src once so later passes don't re-parse the PDF.
func ReadPages(src PageSource) Pages {
	pages := make(Pages, src.NumPages())
	for i := range pages {
		pages[i] = src.PageText(i)
	}
	return pages
}
