package server

import (
	"net/http"

	"graphway/contest"
)

func handleRoot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Graphway Backend"})
	}
}

func handleLeaderboard(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.LeaderboardData())
	}
}
