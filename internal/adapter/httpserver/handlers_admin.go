package httpserver

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/softrate-ats/internal/adapter/export"
	"github.com/fairyhunter13/softrate-ats/internal/usecase"
)

type summaryView struct {
	Candidates   int            `json:"candidates"`
	Applications int            `json:"applications"`
	ByStatus     map[string]int `json:"by_status"`
}

type candidatesResponse struct {
	Summary summaryView        `json:"summary"`
	Items   []candidateRowView `json:"items"`
}

// AdminCandidates lists every candidate with their applications and a
// per-status summary. ?status= filters rows by status.
func (s *Server) AdminCandidates(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Admin.CandidateRows(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	sum := usecase.Summarize(rows)
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := rows[:0:0]
		for _, row := range rows {
			if row.Status == status {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	writeJSON(w, http.StatusOK, candidatesResponse{
		Summary: summaryView{Candidates: sum.Candidates, Applications: sum.Applications, ByStatus: sum.ByStatus},
		Items:   toCandidateRowViews(rows),
	})
}

// ExportCandidates streams the candidate overview as an XLSX workbook.
func (s *Server) ExportCandidates(w http.ResponseWriter, r *http.Request) {
	rows, err := s.Admin.CandidateRows(r.Context())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	now := time.Now().UTC()
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, rows, now); err != nil {
		writeError(w, r, fmt.Errorf("op=http.export_candidates: %w", err), nil)
		return
	}
	name := "candidates-" + now.Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// AdminDeleteCandidate removes a candidate with every application and submission.
func (s *Server) AdminDeleteCandidate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := ValidateID("id", id); err != nil {
		writeError(w, r, err, nil)
		return
	}
	if err := s.Admin.DeleteCandidate(r.Context(), id); err != nil {
		writeError(w, r, err, nil)
		return
	}
	LoggerFrom(r).Info("candidate deleted", slog.String("candidate_id", id))
	w.WriteHeader(http.StatusNoContent)
}
