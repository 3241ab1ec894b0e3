package extract

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// fakeStrategy returns fixed text or a fixed error, recording calls.
type fakeStrategy struct {
	name   string
	text   string
	err    error
	called bool
}

func (f *fakeStrategy) Name() string { return f.name }

func (f *fakeStrategy) Extract(data []byte) (string, error) {
	f.called = true
	return f.text, f.err
}

var pdfHeader = []byte("%PDF-1.4 fake content")

func TestExtract_RejectsNonPDF(t *testing.T) {
	e := New(&fakeStrategy{name: "fake", text: "should not be reached"})
	_, err := e.Extract([]byte("plain text, no magic"), "notes.txt")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExtract_AcceptsPDFExtensionWithoutMagic(t *testing.T) {
	// Either signal is enough: a .pdf name with unsniffable bytes passes.
	e := New(&fakeStrategy{name: "fake", text: "body text"})
	pages, err := e.Extract([]byte("no magic here"), "report.PDF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 1 || pages[0].Text != "body text" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestExtract_FirstSuccessfulStrategyWins(t *testing.T) {
	first := &fakeStrategy{name: "first", err: errors.New("boom")}
	second := &fakeStrategy{name: "second", text: "from second"}
	third := &fakeStrategy{name: "third", text: "never"}

	e := New(first, second, third)
	pages, err := e.Extract(pdfHeader, "doc.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.called || !second.called {
		t.Errorf("expected first and second strategies to run")
	}
	if third.called {
		t.Errorf("third strategy should not run after a success")
	}
	if len(pages) != 1 || pages[0].Text != "from second" {
		t.Errorf("unexpected pages: %+v", pages)
	}
}

func TestExtract_AllStrategiesFail(t *testing.T) {
	e := New(
		&fakeStrategy{name: "a", err: errors.New("no xref")},
		&fakeStrategy{name: "b", err: errors.New("bad trailer")},
	)
	_, err := e.Extract(pdfHeader, "broken.pdf")
	if !errors.Is(err, ErrExtractionUnavailable) {
		t.Fatalf("expected ErrExtractionUnavailable, got %v", err)
	}
}

func TestExtract_EmptyTextYieldsZeroPagesNoError(t *testing.T) {
	e := New(&fakeStrategy{name: "empty", text: "  \n \n  "})
	pages, err := e.Extract(pdfHeader, "scanned.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("expected 0 pages, got %d", len(pages))
	}
}

func TestSplitPseudoPages_BlankLineBlocks(t *testing.T) {
	text := "First block line one.\nLine two.\n\nSecond block.\n \nThird block."
	pages := splitPseudoPages(text)
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	for i, p := range pages {
		if p.Number != i+1 {
			t.Errorf("page %d: expected number %d, got %d", i, i+1, p.Number)
		}
	}
	if !strings.Contains(pages[1].Text, "Second block") {
		t.Errorf("unexpected page 2 text: %q", pages[1].Text)
	}
}

func TestSplitPseudoPages_NoBlankLinesIsSinglePage(t *testing.T) {
	pages := splitPseudoPages("one line\nanother line\na third")
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Number != 1 {
		t.Errorf("expected page number 1, got %d", pages[0].Number)
	}
}

func TestSplitPseudoPages_CapsAtMaxPseudoPages(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MaxPseudoPages+40; i++ {
		fmt.Fprintf(&sb, "block %d\n\n", i)
	}
	pages := splitPseudoPages(sb.String())
	if len(pages) != MaxPseudoPages {
		t.Fatalf("expected %d pages, got %d", MaxPseudoPages, len(pages))
	}
	if pages[len(pages)-1].Number != MaxPseudoPages {
		t.Errorf("last page number should be %d, got %d", MaxPseudoPages, pages[len(pages)-1].Number)
	}
}

func TestSniffPDF(t *testing.T) {
	cases := []struct {
		data     string
		filename string
		want     bool
	}{
		{"%PDF-1.7 ...", "upload.bin", true},
		{"garbage", "report.pdf", true},
		{"garbage", "report.PDF", true},
		{"%PDF-1.4", "report.pdf", true},
		{"garbage", "notes.txt", false},
		{"", "", false},
	}
	for _, tc := range cases {
		if got := SniffPDF([]byte(tc.data), tc.filename); got != tc.want {
			t.Errorf("SniffPDF(%q, %q) = %v, want %v", tc.data[:min(len(tc.data), 8)], tc.filename, got, tc.want)
		}
	}
}
