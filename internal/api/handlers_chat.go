package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"smartdocs/internal/embed"
)

// noDocsAnswer is returned without calling the language model when the
// store is empty.
const noDocsAnswer = "No documents ingested yet. Please upload PDFs first."

type chatRequest struct {
	Question string `json:"question"`
}

type chatCitation struct {
	Idx    int    `json:"idx"`
	Source string `json:"source"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		jsonError(w, "question is required", http.StatusBadRequest)
		return
	}

	result, err := s.pipeline.Query(r.Context(), question, s.cfg.TopK)
	if err != nil {
		var perr *embed.ProviderError
		if errors.As(err, &perr) {
			jsonError(w, "embedding provider error: "+perr.Error(), http.StatusBadGateway)
			return
		}
		jsonError(w, "retrieval failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if len(result.Citations) == 0 {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"answer":    noDocsAnswer,
			"citations": []chatCitation{},
		})
		return
	}

	answer, err := s.answerer.Answer(r.Context(), question, result.Citations)
	if err != nil {
		jsonError(w, "answer generation failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	citations := make([]chatCitation, len(result.Citations))
	for i, c := range result.Citations {
		citations[i] = chatCitation{Idx: i, Source: c.Source, Page: c.Page, Text: c.Text}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"answer":    answer,
		"citations": citations,
	})
}
