package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"graphway/contest"
	"graphway/external/judge"
)

func addRoutes(r chi.Router, adminToken string, m *contest.Manager, judgeCli judge.Client) {
	r.Get("/", handleRoot())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", handleLeaderboard(m))
		r.Get("/me/{token}", handleTeamView(m))

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth(adminToken))

			r.Get("/status", handleAdminStatus(m))
			r.Post("/config", handleUpdateConfig(m))
			r.Post("/reset", handleReset(m))
			r.Post("/contest/state", handleSetState(m))

			r.Get("/graph", handleGetGraph(m))
			r.Post("/graph/node", handleAddUpdateNode(m))
			r.Delete("/graph/node/{nodeID}", handleDeleteNode(m))
			r.Post("/graph/edge", handleAddEdge(m))
			r.Delete("/graph/edge", handleDeleteEdge(m))

			r.Get("/export", handleExport(m))
			r.Post("/import", handleImport(m))

			r.Get("/teams", handleListTeams(m))
			r.Post("/teams", handleAddTeam(m))
			r.Put("/teams/{teamID}", handleUpdateTeam(m))
			r.Delete("/teams/{teamID}", handleDeleteTeam(m))
			r.Post("/teams/{teamID}/nodes/{nodeID}/solve", handleForceSolve(m))
			r.Post("/teams/{teamID}/nodes/{nodeID}/unsolve", handleForceUnsolve(m))
			r.Get("/teams/{teamID}/state", handleTeamState(m))

			r.Post("/cf/random", handleRandomProblem(judgeCli))
		})
	})
}
