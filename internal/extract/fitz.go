package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// MuPDFStrategy is the last-resort page-oriented extractor, backed by
// MuPDF through go-fitz. It handles many files the pure-Go reader cannot.
type MuPDFStrategy struct{}

func (s *MuPDFStrategy) Name() string { return "pdf-mupdf" }

func (s *MuPDFStrategy) Extract(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	var buf strings.Builder
	numPages := doc.NumPage()
	for i := 0; i < numPages; i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(pageText)
	}
	return buf.String(), nil
}
