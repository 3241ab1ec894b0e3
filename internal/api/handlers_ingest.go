package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"smartdocs/internal/embed"
	"smartdocs/internal/pipeline"
)

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var files []pipeline.File
	var skipped []pipeline.FileError
	for _, fh := range headers {
		filename := sanitizeFilename(fh.Filename)

		f, err := fh.Open()
		if err != nil {
			skipped = append(skipped, pipeline.FileError{Name: filename, Err: "failed to open file"})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxFileBytes+1))
		f.Close()
		if err != nil {
			skipped = append(skipped, pipeline.FileError{Name: filename, Err: "failed to read file"})
			continue
		}
		if int64(len(data)) > s.cfg.MaxFileBytes {
			skipped = append(skipped, pipeline.FileError{
				Name: filename,
				Err:  fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxFileBytes),
			})
			continue
		}

		files = append(files, pipeline.File{Name: filename, Data: data})
	}

	if len(files) == 0 {
		jsonError(w, "no readable files in request", http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.Ingest(r.Context(), files)
	result.Skipped = append(skipped, result.Skipped...)
	if err != nil {
		var perr *embed.ProviderError
		switch {
		case errors.Is(err, pipeline.ErrNoReadableText):
			jsonError(w, "no readable text in any uploaded file", http.StatusBadRequest)
		case errors.As(err, &perr):
			jsonError(w, "embedding provider error: "+perr.Error(), http.StatusBadGateway)
		default:
			jsonError(w, "ingestion failed: "+err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"ok":      true,
		"added":   result.Added,
		"skipped": result.Skipped,
	})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
