package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxPseudoPages bounds the number of page-like blocks processed per
// file. Later blocks are silently dropped to keep degenerate inputs
// (e.g. OCR noise with thousands of blank-line gaps) from exploding
// chunk and embedding counts.
const MaxPseudoPages = 120

var (
	// ErrUnsupportedFormat means the input is not a PDF.
	ErrUnsupportedFormat = errors.New("unsupported format: not a PDF")
	// ErrExtractionUnavailable means no extraction strategy produced text.
	ErrExtractionUnavailable = errors.New("no extraction strategy succeeded")
)

// Page is a pseudo-page: a blank-line-delimited block of extracted text.
// Number is 1-based.
type Page struct {
	Number int
	Text   string
}

// Strategy is one way of turning PDF bytes into a single text string.
type Strategy interface {
	Name() string
	Extract(data []byte) (string, error)
}

// Extractor turns raw PDF bytes into pseudo-pages by trying a fixed
// priority list of strategies and using the first that succeeds.
type Extractor struct {
	strategies []Strategy
}

// New creates an Extractor with the given strategy chain. An empty list
// falls back to DefaultStrategies.
func New(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{strategies: strategies}
}

// DefaultStrategies returns the production strategy chain: whole-document
// text extraction first (the cheap common case), then page-oriented
// extraction with two different underlying libraries.
func DefaultStrategies() []Strategy {
	return []Strategy{
		&PlainTextStrategy{},
		&PageWiseStrategy{},
		&MuPDFStrategy{},
	}
}

// Extract parses the buffer and returns its pseudo-pages.
//
// Returns ErrUnsupportedFormat when neither the content sniffs as PDF nor
// the filename carries a .pdf extension, and ErrExtractionUnavailable
// when every strategy fails. A PDF that parses but contains no text
// yields zero pages and no error; callers skip such files.
func (e *Extractor) Extract(data []byte, filename string) ([]Page, error) {
	if !SniffPDF(data, filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(filename))
	}

	var lastErr error
	for _, s := range e.strategies {
		text, err := s.Extract(data)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", s.Name(), err)
			continue
		}
		return splitPseudoPages(text), nil
	}
	if lastErr == nil {
		lastErr = errors.New("no strategies configured")
	}
	return nil, fmt.Errorf("%w: %v", ErrExtractionUnavailable, lastErr)
}

// SniffPDF reports whether the buffer or filename identifies a PDF.
// Either signal is enough; the input is rejected only when both disagree.
func SniffPDF(data []byte, filename string) bool {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// splitPseudoPages derives page-like blocks by splitting extracted text
// on runs of blank lines. Text with no blank-line boundaries becomes a
// single page. At most MaxPseudoPages blocks are kept.
func splitPseudoPages(text string) []Page {
	var pages []Page
	for _, block := range blankLines.Split(text, -1) {
		if strings.TrimSpace(block) == "" {
			continue
		}
		pages = append(pages, Page{Number: len(pages) + 1, Text: block})
		if len(pages) == MaxPseudoPages {
			break
		}
	}
	return pages
}
