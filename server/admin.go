package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"graphway/contest"
	"graphway/external/judge"
	"graphway/model"
)

var validate = validator.New()

func decodeValid(r *http.Request, v any) error {
	if err := readJSON(r, v); err != nil {
		return errors.WithMessage(err, "invalid JSON body")
	}
	return validate.Struct(v)
}

func handleAdminStatus(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.AdminStatus())
	}
}

type configPayload struct {
	StartTime int64  `json:"start_time" validate:"required"`
	Duration  int64  `json:"duration" validate:"required,gt=0"`
	Name      string `json:"name"`
}

func handleUpdateConfig(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload configPayload
		if err := decodeValid(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		m.UpdateConfig(payload.StartTime, payload.Duration, payload.Name)
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleReset(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.ResetContest()
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "reset",
			"message": "Contest has been reset to default state",
		})
	}
}

type statePayload struct {
	State model.ContestState `json:"state" validate:"required,oneof=EDITING RUNNING FINISHED"`
}

func handleSetState(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload statePayload
		if err := decodeValid(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := m.SetState(payload.State); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "updated", "state": payload.State})
	}
}

func handleGetGraph(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.GraphData())
	}
}

type nodePayload struct {
	ID        string         `json:"id" validate:"required"`
	PID       string         `json:"pid" validate:"required"`
	Rating    int            `json:"rating" validate:"gte=0"`
	Position  model.Position `json:"position"`
	Neighbors []string       `json:"neighbors"`
}

func handleAddUpdateNode(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload nodePayload
		if err := decodeValid(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		node := &model.Node{
			ID:        payload.ID,
			PID:       payload.PID,
			Rating:    payload.Rating,
			Position:  payload.Position,
			Neighbors: model.NewIDSet(payload.Neighbors...),
		}
		if err := m.AddOrUpdateNode(node); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleDeleteNode(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.DeleteNode(chi.URLParam(r, "nodeID")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

type edgePayload struct {
	FromID string `json:"from_id" validate:"required"`
	ToID   string `json:"to_id" validate:"required"`
}

func handleAddEdge(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload edgePayload
		if err := decodeValid(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := m.AddEdge(payload.FromID, payload.ToID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "added"})
	}
}

func handleDeleteEdge(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload edgePayload
		if err := decodeValid(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := m.DeleteEdge(payload.FromID, payload.ToID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleExport(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := m.ExportData()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename=contest_export.json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// handleImport accepts a whole-contest JSON document as a multipart upload
// and swaps it in as the live contest. The import format is identical to the
// export and autosave formats.
func handleImport(m *contest.Manager) http.HandlerFunc {
	const maxImportSize = 8 << 20

	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(maxImportSize); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "missing contest file")
			return
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(io.LimitReader(file, maxImportSize))
		if err != nil {
			writeError(w, http.StatusBadRequest, "failed to read contest file")
			return
		}
		if err := m.ImportContest(data); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "imported",
			"message": "Contest state loaded successfully",
		})
	}
}

func handleListTeams(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, m.AllTeams())
	}
}

type teamCreatePayload struct {
	Name    string   `json:"name" validate:"required"`
	Handles []string `json:"handles" validate:"required"`
}

func handleAddTeam(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload teamCreatePayload
		if err := decodeValid(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		info, err := m.AddTeam(payload.Name, payload.Handles)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

type teamUpdatePayload struct {
	Name    string   `json:"name"`
	Handles []string `json:"handles"`
}

func handleUpdateTeam(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload teamUpdatePayload
		if err := readJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := m.UpdateTeam(chi.URLParam(r, "teamID"), payload.Name, payload.Handles); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

func handleDeleteTeam(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.RemoveTeam(chi.URLParam(r, "teamID"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}

func handleForceSolve(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.ForceSolve(chi.URLParam(r, "teamID"), chi.URLParam(r, "nodeID")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "solved"})
	}
}

func handleForceUnsolve(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.ForceUnsolve(chi.URLParam(r, "teamID"), chi.URLParam(r, "nodeID")); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "unsolved"})
	}
}

func handleTeamState(m *contest.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := m.TeamNodeStates(chi.URLParam(r, "teamID"))
		if errors.Is(err, contest.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team not found")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

type randomProblemPayload struct {
	MinRating int `json:"min_rating" validate:"gte=0"`
	MaxRating int `json:"max_rating" validate:"gtefield=MinRating"`
}

type randomProblemResponse struct {
	ContestID int    `json:"contestId"`
	Index     string `json:"index"`
	Name      string `json:"name"`
	Rating    int    `json:"rating"`
	PID       string `json:"pid"`
}

func handleRandomProblem(judgeCli judge.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload randomProblemPayload
		if err := decodeValid(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		problem, err := judgeCli.RandomProblem(r.Context(), payload.MinRating, payload.MaxRating)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, randomProblemResponse{
			ContestID: problem.ContestID,
			Index:     problem.Index,
			Name:      problem.Name,
			Rating:    problem.Rating,
			PID:       problem.PID(),
		})
	}
}
