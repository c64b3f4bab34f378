// Package api implements the Remo REST API handlers.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/remoproj/remo/agent"
	"github.com/remoproj/remo/task"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tasks   task.Store
	Fetcher agent.Fetcher
	Loop    *agent.Loop
	Logger  *slog.Logger
	Version string
	StartAt int64 // unix timestamp of server start
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /tasks", h.createTask)
	mux.HandleFunc("GET /tasks/{user_id}", h.listTasks)
	mux.HandleFunc("POST /tasks/{task_id}/complete_training", h.completeTraining)

	mux.HandleFunc("POST /register-push-token", h.registerPushToken)

	mux.HandleFunc("POST /execute/browse", h.executeBrowse)
	mux.HandleFunc("POST /execute/think", h.executeThink)
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Task handlers ---

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	id, err := h.Tasks.Create(&t)
	if err != nil {
		if errors.Is(err, task.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	t.ID = id
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handlers) listTasks(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("user_id")
	tasks, err := h.Tasks.ListByUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

// completeTrainingRequest is the body of POST /tasks/{task_id}/complete_training.
type completeTrainingRequest struct {
	ActionPlan []task.RecordedAction `json:"action_plan"`
	Transcript string                `json:"transcript"`
}

func (h *Handlers) completeTraining(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("task_id")

	var req completeTrainingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := h.Tasks.CompleteTraining(id, req.ActionPlan, req.Transcript); err != nil {
		if errors.Is(err, task.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.Logger.Info("training completed",
		slog.String("task_id", id),
		slog.Int("actions", len(req.ActionPlan)),
	)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "task_id": id})
}

// --- Push token handler ---

// pushTokenRequest is the body of POST /register-push-token.
type pushTokenRequest struct {
	UserID string `json:"user_id"`
	Token  string `json:"token"`
}

func (h *Handlers) registerPushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.UserID == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "user_id and token are required")
		return
	}

	if err := h.Tasks.UpsertPushToken(req.UserID, req.Token); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// --- Execution handlers ---

// browseRequest is the body of POST /execute/browse.
type browseRequest struct {
	URL string `json:"url"`
}

// executeBrowse performs a single supervised page fetch and returns the
// simplified observation.
func (h *Handlers) executeBrowse(w http.ResponseWriter, r *http.Request) {
	var req browseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	obs := h.Fetcher.Fetch(r.Context(), req.URL)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "completed",
		"result": obs,
	})
}

// thinkRequest is the body of POST /execute/think.
type thinkRequest struct {
	Goal     string `json:"goal"`
	StartURL string `json:"start_url"`
}

// executeThink runs the bounded autonomous browsing loop for a goal.
func (h *Handlers) executeThink(w http.ResponseWriter, r *http.Request) {
	var req thinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Goal == "" {
		writeError(w, http.StatusBadRequest, "goal is required")
		return
	}

	result, err := h.Loop.Run(r.Context(), &agent.Session{
		Goal:     req.Goal,
		StartURL: req.StartURL,
	})
	if err != nil {
		h.Logger.Error("think run failed",
			slog.String("goal", req.Goal),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "completed",
		"final_result": result.FinalText(),
		"finished":     result.Finished,
		"iterations":   result.Iterations,
	})
}

// --- Status handlers ---

// Root returns the service banner at GET /.
func (h *Handlers) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Remo backend is running."})
}

// Status reports version and uptime metadata at GET /api/status.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  h.Version,
		"start_at": h.StartAt,
	})
}
