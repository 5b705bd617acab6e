// Package api implements the taskhub REST handlers.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/xwindash/taskhub/events"
	"github.com/xwindash/taskhub/project"
	"github.com/xwindash/taskhub/task"
)

// Handlers bundles all REST API handler dependencies.
type Handlers struct {
	Tasks    *task.Service
	Projects project.Store
	Bus      events.Bus
	Logger   *slog.Logger
	Version  string
}

// RegisterRoutes registers all API routes on the given mux.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/projects", h.listProjects)
	mux.HandleFunc("POST /api/projects", h.createProject)
	mux.HandleFunc("GET /api/projects/{id}", h.getProject)
	mux.HandleFunc("DELETE /api/projects/{id}", h.deleteProject)
	mux.HandleFunc("GET /api/projects/{id}/tasks", h.listProjectTasks)
	mux.HandleFunc("GET /api/projects/{id}/stats", h.projectStats)

	mux.HandleFunc("POST /api/tasks", h.createTask)
	mux.HandleFunc("GET /api/tasks/{id}", h.getTask)
	mux.HandleFunc("PATCH /api/tasks/{id}", h.updateTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.deleteTask)

	mux.HandleFunc("POST /api/tasks/{id}/start", h.startTask)
	mux.HandleFunc("POST /api/tasks/{id}/complete", h.completeTask)
	mux.HandleFunc("POST /api/tasks/{id}/cancel", h.cancelTask)
	mux.HandleFunc("POST /api/tasks/{id}/archive", h.archiveTask)
	mux.HandleFunc("PUT /api/tasks/{id}/progress", h.updateProgress)
	mux.HandleFunc("PUT /api/tasks/{id}/assignee", h.assignTask)
	mux.HandleFunc("DELETE /api/tasks/{id}/assignee", h.unassignTask)

	mux.HandleFunc("GET /api/tasks/{id}/subtasks", h.listSubtasks)
	mux.HandleFunc("POST /api/tasks/{id}/subtasks", h.createSubtask)

	mux.HandleFunc("POST /api/tasks/bulk/status", h.bulkStatus)
	mux.HandleFunc("POST /api/tasks/bulk/assign", h.bulkAssign)

	mux.HandleFunc("GET /api/users/{id}/tasks", h.listUserTasks)
	mux.HandleFunc("GET /api/users/{id}/stats", h.userStats)

	mux.HandleFunc("GET /api/events", h.listEvents)
	mux.HandleFunc("GET /api/status", h.status)
	mux.HandleFunc("GET /api/version", h.version)
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

// writeTaskError maps the task error taxonomy to HTTP status codes.
func writeTaskError(w http.ResponseWriter, err error) {
	var transition *task.TransitionError
	var validation *task.ValidationError
	switch {
	case errors.Is(err, task.ErrNotFound), errors.Is(err, project.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &transition), errors.Is(err, task.ErrStaleWrite):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &validation), errors.Is(err, task.ErrOutOfRange):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Project handlers ---

func (h *Handlers) listProjects(w http.ResponseWriter, _ *http.Request) {
	projects, err := h.Projects.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if projects == nil {
		projects = []*project.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handlers) createProject(w http.ResponseWriter, r *http.Request) {
	var p project.Project
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, "project name is required")
		return
	}
	if _, err := h.Projects.Create(&p); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handlers) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := h.Projects.Get(r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) deleteProject(w http.ResponseWriter, r *http.Request) {
	if err := h.Projects.Delete(r.PathValue("id")); err != nil {
		writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listOptions decodes the shared filter query parameters.
func listOptions(r *http.Request) task.ListOptions {
	q := r.URL.Query()
	opts := task.ListOptions{}

	if s := q.Get("status"); s != "" {
		st := task.Status(s)
		opts.Status = &st
	}
	if p := q.Get("priority"); p != "" {
		pr := task.Priority(p)
		opts.Priority = &pr
	}
	opts.Type = q.Get("type")
	opts.AssignedTo = q.Get("assigned_to")
	if a := q.Get("archived"); a != "" {
		archived := a == "true" || a == "1"
		opts.Archived = &archived
	}
	opts.Overdue = q.Get("overdue") == "true"
	opts.DueSoon = q.Get("due_soon") == "true"
	if d := q.Get("due_soon_days"); d != "" {
		if n, err := strconv.Atoi(d); err == nil {
			opts.DueSoonDays = n
		}
	}
	opts.SortBy = q.Get("sort_by")
	opts.SortDesc = q.Get("sort_order") == "desc"
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			opts.Limit = n
		}
	}
	if o := q.Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil {
			opts.Offset = n
		}
	}
	return opts
}

func (h *Handlers) listProjectTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.TasksByProject(r.PathValue("id"), listOptions(r))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) projectStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Tasks.ProjectStatistics(r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Task handlers ---

func (h *Handlers) createTask(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := h.Tasks.Create(r.Context(), &t)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handlers) getTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Get(r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.Tasks.Get(id)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	// Decode partial update over existing task
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	existing.ID = id // ensure ID is not overwritten

	updated, err := h.Tasks.Update(r.Context(), existing)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeTaskError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Lifecycle handlers ---

func (h *Handlers) startTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Start(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) completeTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) cancelTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Cancel(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) archiveTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Archive(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) updateProgress(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Progress float64 `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	t, err := h.Tasks.UpdateProgress(r.Context(), r.PathValue("id"), body.Progress)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) assignTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	t, err := h.Tasks.Assign(r.Context(), r.PathValue("id"), body.UserID)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handlers) unassignTask(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tasks.Unassign(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// --- Subtask handlers ---

func (h *Handlers) listSubtasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.Subtasks(r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) createSubtask(w http.ResponseWriter, r *http.Request) {
	var t task.Task
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	created, err := h.Tasks.CreateSubtask(r.Context(), r.PathValue("id"), &t)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// --- Bulk handlers ---

func (h *Handlers) bulkStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs    []string    `json:"ids"`
		Status task.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	n, err := h.Tasks.BulkUpdateStatus(r.Context(), body.IDs, body.Status)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *Handlers) bulkAssign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs    []string `json:"ids"`
		UserID string   `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	n, err := h.Tasks.BulkAssign(r.Context(), body.IDs, body.UserID)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// --- User handlers ---

func (h *Handlers) listUserTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.Tasks.TasksByUser(r.PathValue("id"), listOptions(r))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	if tasks == nil {
		tasks = []*task.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *Handlers) userStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Tasks.UserStatistics(r.PathValue("id"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// --- Event handlers ---

func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}

	evs, err := h.Bus.History(taskID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if evs == nil {
		evs = []*events.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

// --- Status / version ---

func (h *Handlers) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.Version,
	})
}

// StatusHandler returns the status handler function for external registration.
func (h *Handlers) StatusHandler() http.HandlerFunc {
	return h.status
}

func (h *Handlers) version(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": h.Version,
	})
}
