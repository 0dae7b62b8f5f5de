// internal/api/dashboard.go
package api

import (
	"errors"
	"net/http"
	"strings"

	apperrors "childcare-registration/internal/common/errors"
	"childcare-registration/internal/models"
	builddashboard "childcare-registration/internal/workers/dashboard/build-dashboard"
	searchapplications "childcare-registration/internal/workers/dashboard/search-applications"
)

// handleDashboard serves GET /dashboard?q=&status=. A query narrows the
// dashboard to the search hits.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	input := &builddashboard.Input{
		Status: models.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
	}

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" && s.deps.Search != nil {
		found, err := s.deps.Search.Execute(r.Context(), &searchapplications.Input{Query: q})
		if err != nil {
			if errors.Is(err, searchapplications.ErrSearchTimeout) {
				s.fail(w, r, apperrors.NewTimeoutError("search", err))
				return
			}
			s.fail(w, r, apperrors.NewSearchQueryFailedError(err))
			return
		}
		input.ApplicationIDs = append([]string{}, found.ApplicationIDs...)
	}

	out, err := s.deps.Dashboard.Execute(r.Context(), input)
	switch {
	case errors.Is(err, builddashboard.ErrInvalidStatus):
		s.fail(w, r, apperrors.NewInvalidPayloadError("unknown status "+string(input.Status)))
		return
	case err != nil:
		s.fail(w, r, apperrors.NewPersistenceFailedError(err))
		return
	}

	if user := usernameFrom(r.Context()); user != "" {
		s.logger.Debug("dashboard served", map[string]interface{}{
			"username":     user,
			"applications": len(out.Dashboard.Applications),
			"cached":       out.Cached,
		})
	}
	writeJSON(w, http.StatusOK, out.Dashboard)
}
