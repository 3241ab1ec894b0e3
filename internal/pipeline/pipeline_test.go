package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"smartdocs/internal/chunker"
	"smartdocs/internal/embed"
	"smartdocs/internal/extract"
	"smartdocs/internal/store"
)

// passthroughStrategy makes the raw file bytes the "extracted text", so
// tests control pseudo-page layout directly.
type passthroughStrategy struct{}

func (passthroughStrategy) Name() string                        { return "passthrough" }
func (passthroughStrategy) Extract(data []byte) (string, error) { return string(data), nil }

// fakeEmbedder derives a deterministic 3-dim vector from each text and
// can be scripted to fail on the nth batch call.
type fakeEmbedder struct {
	batchCalls int
	failOnCall int // 0 = never fail
	queryVec   []float32
}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.failOnCall != 0 && f.batchCalls == f.failOnCall {
		return nil, &embed.ProviderError{Op: "embed documents", Err: errors.New("quota exceeded")}
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), float32(text[0]), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if f.queryVec != nil {
		return f.queryVec, nil
	}
	return []float32{float32(len(text)), float32(text[0]), 1}, nil
}

func newTestPipeline(t *testing.T, emb embed.Embedder, batchSize int) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ext := extract.New(passthroughStrategy{})
	p := New(ext, emb, st, slog.New(slog.DiscardHandler), chunker.DefaultConfig(), batchSize)
	return p, st
}

func TestIngest_ThousandCharFileYieldsTwoChunks(t *testing.T) {
	p, st := newTestPipeline(t, &fakeEmbedder{}, 0)
	ctx := context.Background()

	text := strings.Repeat("abcde", 200) // exactly 1000 chars, no blank lines
	res, err := p.Ingest(ctx, []File{{Name: "doc.pdf", Data: []byte(text)}})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Added != 2 {
		t.Fatalf("expected 2 chunks added, got %d", res.Added)
	}

	records, vectors, err := st.ReadAll(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(records) != 2 || len(vectors) != 2 {
		t.Fatalf("expected 2 persisted pairs, got %d/%d", len(records), len(vectors))
	}
	if records[0].Text != text[0:800] || records[1].Text != text[600:1000] {
		t.Errorf("chunk boundaries are not [0,800) and [600,1000)")
	}
	if records[0].Page != 1 || records[0].Source != "doc.pdf" {
		t.Errorf("unexpected citation metadata: %+v", records[0])
	}
}

func TestIngest_RepeatedFileAddsNothing(t *testing.T) {
	p, st := newTestPipeline(t, &fakeEmbedder{}, 0)
	ctx := context.Background()

	file := File{Name: "doc.pdf", Data: []byte(strings.Repeat("abcde", 200))}
	if _, err := p.Ingest(ctx, []File{file}); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	before, _ := st.Count(ctx)

	res, err := p.Ingest(ctx, []File{file})
	if err != nil {
		t.Fatalf("second ingest should succeed, got %v", err)
	}
	if res.Added != 0 {
		t.Errorf("expected 0 added on re-ingest, got %d", res.Added)
	}
	after, _ := st.Count(ctx)
	if after != before {
		t.Errorf("count changed on re-ingest: %d -> %d", before, after)
	}
}

func TestIngest_DuplicateWithinOneRequestAddsOnce(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEmbedder{}, 0)

	file := File{Name: "doc.pdf", Data: []byte("identical content")}
	res, err := p.Ingest(context.Background(), []File{file, file})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("expected 1 chunk from two identical files, got %d", res.Added)
	}
}

func TestIngest_EmptyExtractionIsNoReadableText(t *testing.T) {
	p, st := newTestPipeline(t, &fakeEmbedder{}, 0)
	ctx := context.Background()

	_, err := p.Ingest(ctx, []File{{Name: "scanned.pdf", Data: []byte("   \n \n ")}})
	if !errors.Is(err, ErrNoReadableText) {
		t.Fatalf("expected ErrNoReadableText, got %v", err)
	}
	if n, _ := st.Count(ctx); n != 0 {
		t.Errorf("count changed on failed request: %d", n)
	}
}

func TestIngest_BadFileIsSkippedGoodFileIngested(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEmbedder{}, 0)

	res, err := p.Ingest(context.Background(), []File{
		{Name: "notes.txt", Data: []byte("not a pdf at all")},
		{Name: "good.pdf", Data: []byte("some real content here")},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Added != 1 {
		t.Errorf("expected 1 chunk added, got %d", res.Added)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Name != "notes.txt" {
		t.Errorf("expected notes.txt skipped, got %+v", res.Skipped)
	}
}

func TestIngest_ProviderFailureKeepsEarlierBatches(t *testing.T) {
	emb := &fakeEmbedder{failOnCall: 2}
	p, st := newTestPipeline(t, emb, 2)
	ctx := context.Background()

	// Five blank-line-delimited blocks: five pseudo-pages, one short
	// chunk each. Batch size 2 gives three embed calls.
	text := "block one\n\nblock two\n\nblock three\n\nblock four\n\nblock five"
	res, err := p.Ingest(ctx, []File{{Name: "doc.pdf", Data: []byte(text)}})

	var perr *embed.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if res.Added != 2 {
		t.Errorf("expected first batch persisted (2 chunks), got %d", res.Added)
	}
	if n, _ := st.Count(ctx); n != 2 {
		t.Errorf("expected 2 persisted chunks after failure, got %d", n)
	}
}

func TestQuery_RanksStoredChunks(t *testing.T) {
	emb := &fakeEmbedder{}
	p, st := newTestPipeline(t, emb, 0)
	ctx := context.Background()

	chunks := []chunker.Chunk{
		{Text: "north", Source: "a.pdf", Page: 1},
		{Text: "south", Source: "a.pdf", Page: 2},
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}}
	if err := st.AppendAll(ctx, chunks, vectors); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	// Query vector closest to the second stored vector; k beyond count.
	emb.queryVec = []float32{0.1, 1, 0}
	res, err := p.Query(ctx, "which way is south?", 4)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Indices) != 2 || len(res.Citations) != 2 {
		t.Fatalf("expected both stored chunks returned, got %d", len(res.Indices))
	}
	if res.Indices[0] != 1 {
		t.Errorf("expected index 1 ranked first, got %d", res.Indices[0])
	}
	if res.Citations[0].Text != "south" || res.Citations[0].Page != 2 {
		t.Errorf("citation does not match ranked chunk: %+v", res.Citations[0])
	}
}

func TestQuery_EmptyStoreIsEmptyResult(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeEmbedder{}, 0)

	res, err := p.Query(context.Background(), "anything", 4)
	if err != nil {
		t.Fatalf("query on empty store: %v", err)
	}
	if len(res.Indices) != 0 || len(res.Citations) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestShortReason(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("wrap: %w", extract.ErrUnsupportedFormat), "not a PDF"},
		{fmt.Errorf("wrap: %w", extract.ErrExtractionUnavailable), "text extraction failed"},
		{errors.New("other"), "unreadable file"},
	}
	for _, tc := range cases {
		if got := shortReason(tc.err); got != tc.want {
			t.Errorf("shortReason(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
