package httpserver

import (
	"context"
	"net/http"
	"time"
)

// Healthz reports liveness.
func (s *Server) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type checkResult struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Details string `json:"details,omitempty"`
}

// Readyz probes every configured dependency.
func (s *Server) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	results := make([]checkResult, 0, len(s.Checks))
	ready := true
	for _, c := range s.Checks {
		res := checkResult{Name: c.Name, OK: true}
		if c.Fn != nil {
			if err := c.Fn(ctx); err != nil {
				res.OK, res.Details = false, err.Error()
				ready = false
			}
		}
		results = append(results, res)
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": results})
}
