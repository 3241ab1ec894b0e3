// Package pipeline orchestrates ingestion (extract, chunk, dedupe,
// embed, persist) and retrieval for uploaded PDF documents.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"smartdocs/internal/chunker"
	"smartdocs/internal/embed"
	"smartdocs/internal/extract"
	"smartdocs/internal/retrieve"
	"smartdocs/internal/store"
)

// EmbedBatch caps how many chunk texts go to the embedding provider in
// one call, bounding peak payload size. Each batch is embedded and
// persisted as one unit.
const EmbedBatch = 64

// ErrNoReadableText means no file in the request produced any extracted
// text at all.
var ErrNoReadableText = errors.New("no readable text extracted")

// File is one uploaded document: its sanitized base filename and raw bytes.
type File struct {
	Name string
	Data []byte
}

// FileError records a per-file failure that did not abort the request.
type FileError struct {
	Name string `json:"filename"`
	Err  string `json:"error"`
}

// Result summarizes one ingestion request.
type Result struct {
	Added   int         `json:"added"`
	Skipped []FileError `json:"skipped,omitempty"`
}

// Citation is one retrieved chunk handed to the answer-generation
// collaborator as grounding context.
type Citation struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// QueryResult is the ranked retrieval output for one question.
type QueryResult struct {
	Citations []Citation
	Indices   []int // positions in storage order, best match first
}

// Pipeline wires the ingestion and retrieval components together.
type Pipeline struct {
	extractor *extract.Extractor
	embedder  embed.Embedder
	store     *store.Store
	log       *slog.Logger
	chunkCfg  chunker.Config
	batchSize int
}

// New creates a Pipeline. batchSize <= 0 falls back to EmbedBatch.
func New(extractor *extract.Extractor, embedder embed.Embedder, st *store.Store, log *slog.Logger, chunkCfg chunker.Config, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = EmbedBatch
	}
	return &Pipeline{
		extractor: extractor,
		embedder:  embedder,
		store:     st,
		log:       log,
		chunkCfg:  chunkCfg,
		batchSize: batchSize,
	}
}

// Ingest processes the files in order: extraction failures are isolated
// per file, chunks from all files are accumulated and deduplicated, then
// embedded and persisted in batches. A batch is appended only after its
// embedding call succeeds, so a provider failure leaves earlier batches
// persisted and the failing batch entirely absent.
func (p *Pipeline) Ingest(ctx context.Context, files []File) (Result, error) {
	var res Result

	seed, err := p.store.Fingerprints(ctx)
	if err != nil {
		return res, fmt.Errorf("load persisted fingerprints: %w", err)
	}
	dedup := chunker.NewDeduplicator(seed)

	var pending []chunker.Chunk
	extracted := 0 // chunks produced before deduplication

	for _, f := range files {
		pages, err := p.extractor.Extract(f.Data, f.Name)
		if err != nil {
			p.log.Warn("skipping file", "filename", f.Name, "error", err)
			res.Skipped = append(res.Skipped, FileError{Name: f.Name, Err: shortReason(err)})
			continue
		}
		if len(pages) == 0 {
			p.log.Warn("no text extracted", "filename", f.Name)
			res.Skipped = append(res.Skipped, FileError{Name: f.Name, Err: "no extractable text"})
			continue
		}

		for _, page := range pages {
			for _, c := range chunker.Split(page.Text, f.Name, page.Number, p.chunkCfg) {
				extracted++
				if dedup.Seen(c) {
					continue
				}
				pending = append(pending, c)
			}
		}
	}

	if extracted == 0 {
		return res, ErrNoReadableText
	}
	p.log.Info("ingest chunked", "files", len(files), "chunks", extracted, "new", len(pending))

	for start := 0; start < len(pending); start += p.batchSize {
		end := start + p.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return res, fmt.Errorf("embed batch at %d: %w", start, err)
		}
		if err := p.store.AppendAll(ctx, batch, vectors); err != nil {
			return res, fmt.Errorf("append batch at %d: %w", start, err)
		}
		res.Added += len(batch)
	}

	p.log.Info("ingest complete", "added", res.Added, "skipped", len(res.Skipped))
	return res, nil
}

// Query embeds the question once, ranks every stored vector against it
// by cosine similarity, and returns the top-k chunks with citation
// metadata. An empty store yields an empty result, not an error.
func (p *Pipeline) Query(ctx context.Context, question string, k int) (QueryResult, error) {
	records, vectors, err := p.store.ReadAll(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("read store: %w", err)
	}
	if len(records) == 0 {
		return QueryResult{}, nil
	}

	queryVec, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return QueryResult{}, fmt.Errorf("embed question: %w", err)
	}

	idxs := retrieve.TopK(queryVec, vectors, k)
	out := QueryResult{Indices: idxs}
	for _, i := range idxs {
		out.Citations = append(out.Citations, Citation{
			Source: records[i].Source,
			Page:   records[i].Page,
			Text:   records[i].Text,
		})
	}
	return out, nil
}

// Count reports how many chunks are currently retrievable.
func (p *Pipeline) Count(ctx context.Context) (int, error) {
	return p.store.Count(ctx)
}

// shortReason keeps per-file error strings user-presentable.
func shortReason(err error) string {
	switch {
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return "not a PDF"
	case errors.Is(err, extract.ErrExtractionUnavailable):
		return "text extraction failed"
	default:
		return "unreadable file"
	}
}
