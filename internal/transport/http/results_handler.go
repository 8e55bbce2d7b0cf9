package http

import (
	"encoding/json"
	"log"
	"net/http"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/csvfile"
)

// ResultsHandler serves the results browser API: all attempts, per-user
// drill-down and CSV export. Store read failures degrade to an empty result
// set with a warning instead of failing the page.
type ResultsHandler struct {
	service *app.QuizService
}

func NewResultsHandler(service *app.QuizService) *ResultsHandler {
	return &ResultsHandler{service: service}
}

type resultsResponse struct {
	Results []domain.AttemptRecord `json:"results"`
	Warning string                 `json:"warning,omitempty"`
}

// ServeResults handles GET /results and GET /results?user=.
func (h *ResultsHandler) ServeResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, warning := h.load(r)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resultsResponse{Results: records, Warning: warning})
}

// ServeExport handles GET /results/export, streaming every row as CSV.
func (h *ResultsHandler) ServeExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, warning := h.load(r)
	if warning != "" {
		http.Error(w, warning, http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="respuestas.csv"`)
	if err := csvfile.Write(w, records); err != nil {
		log.Printf("export write failed: %v", err)
	}
}

func (h *ResultsHandler) load(r *http.Request) ([]domain.AttemptRecord, string) {
	var (
		records []domain.AttemptRecord
		err     error
	)
	if user := r.URL.Query().Get("user"); user != "" {
		records, err = h.service.ResultsByUser(r.Context(), user)
	} else {
		records, err = h.service.Results(r.Context())
	}
	if err != nil {
		log.Printf("results read failed: %v", err)
		return []domain.AttemptRecord{}, "results temporarily unavailable"
	}
	if records == nil {
		records = []domain.AttemptRecord{}
	}
	return records, ""
}
