package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
	"github.com/luzviva/rotina-pixel-gamer/internal/task"
	"github.com/luzviva/rotina-pixel-gamer/internal/websocket"
)

type TaskHandler struct {
	taskStore     *store.TaskStore
	instanceStore *store.InstanceStore
	childStore    *store.ChildStore
	materializer  *task.Materializer
	resolver      *task.Resolver
	completer     *task.Completer
	hub           *websocket.Hub
	logger        *slog.Logger
	horizonDays   int
}

func NewTaskHandler(
	ts *store.TaskStore,
	is *store.InstanceStore,
	cs *store.ChildStore,
	m *task.Materializer,
	r *task.Resolver,
	c *task.Completer,
	hub *websocket.Hub,
	logger *slog.Logger,
	horizonDays int,
) *TaskHandler {
	if horizonDays <= 0 {
		horizonDays = task.DefaultHorizonDays
	}
	return &TaskHandler{
		taskStore:     ts,
		instanceStore: is,
		childStore:    cs,
		materializer:  m,
		resolver:      r,
		completer:     c,
		hub:           hub,
		logger:        logger,
		horizonDays:   horizonDays,
	}
}

func (h *TaskHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *TaskHandler) horizon(from time.Time) recurrence.Window {
	return recurrence.WindowDays(from, h.horizonDays)
}

type taskRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Points        int    `json:"points"`
	ChildID       string `json:"child_id"`
	CreatedBy     string `json:"created_by"`
	Frequency     string `json:"frequency"`
	DueDate       string `json:"due_date"`
	DateStart     string `json:"date_start"`
	DateEnd       string `json:"date_end"`
	Weekdays      string `json:"weekdays"`
	SpecificDates string `json:"specific_dates"`
	TimeMode      string `json:"time_mode"`
	TimeStart     string `json:"time_start"`
	TimeEnd       string `json:"time_end"`
	Duration      int    `json:"duration_minutes"`
	IsVisible     *bool  `json:"is_visible"`
}

func (r *taskRequest) rule() (recurrence.Rule, error) {
	return recurrence.DecodeColumns(recurrence.Columns{
		Frequency:     r.Frequency,
		DueDate:       r.DueDate,
		DateStart:     r.DateStart,
		DateEnd:       r.DateEnd,
		Weekdays:      r.Weekdays,
		SpecificDates: r.SpecificDates,
	})
}

func (r *taskRequest) timeSpec() (model.TimeSpec, error) {
	ts := model.TimeSpec{
		Mode:            r.TimeMode,
		Start:           r.TimeStart,
		End:             r.TimeEnd,
		DurationMinutes: r.Duration,
	}
	if ts.IsZero() {
		return model.TimeSpec{}, nil
	}
	if err := ts.Validate(); err != nil {
		return model.TimeSpec{}, err
	}
	return ts, nil
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Points < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must not be negative"})
		return
	}

	child, err := h.childStore.GetByID(req.ChildID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child not found"})
		return
	}

	rule, err := req.rule()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ts, err := req.timeSpec()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	visible := true
	if req.IsVisible != nil {
		visible = *req.IsVisible
	}

	tmpl, err := h.taskStore.Create(req.Title, req.Description, req.Points, req.ChildID, req.CreatedBy, rule, ts, visible)
	if err != nil {
		h.logger.Error("failed to create task", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create task"})
		return
	}

	// New templates get their instances up front so the child's day views
	// read straight from the instance table.
	if _, err := h.materializer.Materialize(tmpl, h.horizon(time.Now())); err != nil {
		h.logger.Error("failed to materialize task", "template_id", tmpl.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to materialize task"})
		return
	}

	h.broadcast(websocket.NewMessage("task", "created", tmpl.ID, nil))
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		tasks []model.Task
		err   error
	)
	if childID := r.URL.Query().Get("child_id"); childID != "" {
		tasks, err = h.taskStore.ListByChild(childID)
	} else {
		tasks, err = h.taskStore.List()
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list tasks"})
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	tmpl, err := h.taskStore.GetByID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if tmpl == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// Update edits the template only. Existing instances keep their
// snapshots; callers that want the new rule reflected in upcoming days
// follow with a rematerialize call.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	rule, err := req.rule()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ts, err := req.timeSpec()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	tmpl, err := h.taskStore.Update(id, req.Title, req.Description, req.Points, rule, ts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update task"})
		return
	}

	h.broadcast(websocket.NewMessage("task", "updated", id, nil))
	writeJSON(w, http.StatusOK, tmpl)
}

func (h *TaskHandler) SetVisibility(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	var req struct {
		IsVisible bool `json:"is_visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.taskStore.SetVisibility(id, req.IsVisible); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update visibility"})
		return
	}

	h.broadcast(websocket.NewMessage("task", "visibility_changed", id, map[string]any{"is_visible": req.IsVisible}))
	w.WriteHeader(http.StatusNoContent)
}

// Rematerialize drops the template's pending instances and expands the
// current rule over the horizon again. Completed instances are history
// and stay put.
func (h *TaskHandler) Rematerialize(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	tmpl, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if tmpl == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	if _, err := h.instanceStore.DeletePendingByTemplate(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear pending instances"})
		return
	}
	instances, err := h.materializer.Materialize(tmpl, h.horizon(time.Now()))
	if err != nil {
		h.logger.Error("failed to rematerialize task", "template_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to materialize task"})
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}

	h.broadcast(websocket.NewMessage("task", "rematerialized", id, nil))
	writeJSON(w, http.StatusOK, instances)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.taskStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get task"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}

	if err := h.taskStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete task"})
		return
	}

	h.broadcast(websocket.NewMessage("task", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Occurrences lists what is due for a child on a date. The default reads
// materialized instances; ?projected=true evaluates the rules directly,
// which also serves dates beyond the materialized horizon.
func (h *TaskHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	childID := r.PathValue("id")

	date := time.Now()
	if s := r.URL.Query().Get("date"); s != "" {
		parsed, err := recurrence.ParseDate(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, want YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	var (
		instances []model.TaskInstance
		err       error
	)
	if r.URL.Query().Get("projected") == "true" {
		instances, err = h.resolver.Project(childID, date)
	} else {
		instances, err = h.resolver.OccurrencesFor(childID, date)
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve occurrences"})
		return
	}
	if instances == nil {
		instances = []model.TaskInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

type completionResponse struct {
	Instance    *model.TaskInstance `json:"instance"`
	CoinBalance int                 `json:"coin_balance"`
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	instance, balance, err := h.completer.Complete(id, time.Now())
	switch {
	case err == nil:
	case errors.Is(err, task.ErrInstanceNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "instance not found"})
		return
	case errors.Is(err, task.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "instance already completed"})
		return
	default:
		h.logger.Error("failed to complete instance", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to complete instance"})
		return
	}

	h.broadcast(websocket.NewMessage("instance", "completed", id, map[string]any{
		"child_id":     instance.ChildID,
		"coin_balance": balance,
	}))
	writeJSON(w, http.StatusOK, completionResponse{Instance: instance, CoinBalance: balance})
}

func (h *TaskHandler) Uncomplete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	instance, balance, err := h.completer.Uncomplete(id)
	switch {
	case err == nil:
	case errors.Is(err, task.ErrInstanceNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "instance not found"})
		return
	case errors.Is(err, task.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "instance is not completed"})
		return
	case errors.Is(err, ledger.ErrInsufficientBalance):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "coins already spent"})
		return
	default:
		h.logger.Error("failed to uncomplete instance", "instance_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to uncomplete instance"})
		return
	}

	h.broadcast(websocket.NewMessage("instance", "uncompleted", id, map[string]any{
		"child_id":     instance.ChildID,
		"coin_balance": balance,
	}))
	writeJSON(w, http.StatusOK, completionResponse{Instance: instance, CoinBalance: balance})
}
