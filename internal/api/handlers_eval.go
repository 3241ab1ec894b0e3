package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type evalProbe struct {
	Question    string
	MustInclude []string
}

// evalProbes are generic retrieval smoke checks. Adjust to the corpus
// you actually ingest.
var evalProbes = []evalProbe{
	{Question: "What is the document about?", MustInclude: []string{"about", "purpose", "summary"}},
	{Question: "Who is the issuer or organization?", MustInclude: []string{"company", "organization", "issuer"}},
	{Question: "List key dates mentioned.", MustInclude: []string{"date", "202", "20"}},
}

type evalRetrieved struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

type evalResult struct {
	Question  string          `json:"question"`
	Retrieved []evalRetrieved `json:"retrieved"`
	Passed    bool            `json:"passed"`
}

func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	n, err := s.pipeline.Count(r.Context())
	if err != nil {
		jsonError(w, "failed to count chunks: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if n == 0 {
		jsonError(w, "No documents ingested.", http.StatusBadRequest)
		return
	}

	results := make([]evalResult, 0, len(evalProbes))
	hits := 0

	for _, probe := range evalProbes {
		qr, err := s.pipeline.Query(r.Context(), probe.Question, s.cfg.TopK)
		if err != nil {
			jsonError(w, "retrieval failed: "+err.Error(), http.StatusBadGateway)
			return
		}

		var parts []string
		retrieved := make([]evalRetrieved, 0, len(qr.Citations))
		for _, c := range qr.Citations {
			parts = append(parts, strings.ToLower(c.Text))
			retrieved = append(retrieved, evalRetrieved{Source: c.Source, Page: c.Page})
		}
		context := strings.Join(parts, " ")

		passed := false
		for _, keyword := range probe.MustInclude {
			if strings.Contains(context, strings.ToLower(keyword)) {
				passed = true
				break
			}
		}
		if passed {
			hits++
		}

		results = append(results, evalResult{
			Question:  probe.Question,
			Retrieved: retrieved,
			Passed:    passed,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"k":           s.cfg.TopK,
		"total":       len(evalProbes),
		"passed":      hits,
		"recall_at_k": float64(hits) / float64(len(evalProbes)),
		"results":     results,
	})
}
