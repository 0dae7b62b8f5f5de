// internal/api/health.go
package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const readyTimeout = 3 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady runs every dependency check and answers 503 if any fails.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(s.deps.ReadyChecks))
	for name := range s.deps.ReadyChecks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.deps.ReadyChecks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			s.logger.Warn("readiness check failed", map[string]interface{}{"check": name, "error": err.Error()})
			continue
		}
		checks[name] = "ok"
	}

	overall := "ready"
	if status != http.StatusOK {
		overall = "not_ready"
	}
	writeJSON(w, status, map[string]interface{}{"status": overall, "checks": checks})
}
