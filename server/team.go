package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"graphway/contest"
)

// handleTeamView serves the read-only per-team projection. The access code in
// the path is the team's own bearer secret; no other authentication applies.
func handleTeamView(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := m.TeamView(chi.URLParam(r, "token"))
		if errors.Is(err, contest.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
