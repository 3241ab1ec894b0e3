package chunker

import "strings"

// Chunk is one retrievable unit of text, tagged with the file it came
// from and the 1-based pseudo-page within that file.
type Chunk struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // Window length in bytes of normalized text.
	Overlap   int // Shared suffix/prefix length between consecutive chunks.
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 800,
		Overlap:   200,
	}
}

// Normalize collapses runs of whitespace to single spaces and trims.
// Chunk boundaries are computed on normalized text so that re-ingesting
// the same bytes always produces the same fingerprints.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Split slides a fixed window over the normalized block text and emits
// one Chunk per window position. The stride is ChunkSize-Overlap, so
// consecutive chunks share Overlap bytes; the last chunk may be shorter.
// Requires 0 < Overlap < ChunkSize; out-of-range values fall back to the
// defaults.
func Split(blockText, source string, page int, cfg Config) []Chunk {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultConfig().ChunkSize
	}
	if cfg.Overlap <= 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = DefaultConfig().Overlap
		if cfg.Overlap >= cfg.ChunkSize {
			cfg.Overlap = cfg.ChunkSize / 4
		}
	}

	clean := Normalize(blockText)
	if clean == "" {
		return nil
	}

	stride := cfg.ChunkSize - cfg.Overlap
	var chunks []Chunk
	for start := 0; start < len(clean); start += stride {
		end := start + cfg.ChunkSize
		if end > len(clean) {
			end = len(clean)
		}
		chunks = append(chunks, Chunk{
			Text:   clean[start:end],
			Source: source,
			Page:   page,
		})
		// A window that reached the end covers the rest of the text;
		// another step would emit a pure suffix of this chunk.
		if end == len(clean) {
			break
		}
	}
	return chunks
}
