package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/mission"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
	"github.com/luzviva/rotina-pixel-gamer/internal/websocket"
)

type MissionHandler struct {
	missionStore *store.MissionStore
	awarder      *mission.Awarder
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewMissionHandler(ms *store.MissionStore, awarder *mission.Awarder, hub *websocket.Hub, logger *slog.Logger) *MissionHandler {
	return &MissionHandler{missionStore: ms, awarder: awarder, hub: hub, logger: logger}
}

func (h *MissionHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type missionRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Prize       string `json:"prize"`
	ExpiresAt   string `json:"expires_at"`
	CreatedBy   string `json:"created_by"`
}

func (h *MissionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req missionRequest
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

	var expiresAt *time.Time
	if strings.TrimSpace(req.ExpiresAt) != "" {
		exp, err := recurrence.ParseDate(req.ExpiresAt)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid expires_at, want YYYY-MM-DD"})
			return
		}
		expiresAt = &exp
	}

	m, err := h.missionStore.Create(req.Title, req.Description, req.Points, req.Prize, expiresAt, req.CreatedBy)
	if err != nil {
		h.logger.Error("failed to create mission", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create mission"})
		return
	}

	h.broadcast(websocket.NewMessage("mission", "created", m.ID, nil))
	writeJSON(w, http.StatusCreated, m)
}

func (h *MissionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	missions, err := h.missionStore.ListActive(time.Now())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list missions"})
		return
	}
	if missions == nil {
		missions = []model.SpecialMission{}
	}
	writeJSON(w, http.StatusOK, missions)
}

// Complete awards the mission's points to a child and retires the
// mission. Missions are one-shot: once awarded they stop being listed.
func (h *MissionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		ChildID string `json:"child_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.ChildID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child_id is required"})
		return
	}

	awarded, balance, err := h.awarder.Award(id, req.ChildID)
	if err != nil {
		switch {
		case errors.Is(err, mission.ErrMissionNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "mission not found"})
		case errors.Is(err, mission.ErrMissionInactive):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "mission already completed"})
		case errors.Is(err, ledger.ErrChildNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		default:
			h.logger.Error("failed to award mission", "mission_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to award mission"})
		}
		return
	}

	h.broadcast(websocket.NewMessage("mission", "completed", id, map[string]any{
		"child_id":     req.ChildID,
		"coin_balance": balance,
	}))
	writeJSON(w, http.StatusOK, map[string]any{
		"mission":      awarded,
		"child_id":     req.ChildID,
		"coin_balance": balance,
	})
}

func (h *MissionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.missionStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get mission"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "mission not found"})
		return
	}

	if err := h.missionStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete mission"})
		return
	}

	h.broadcast(websocket.NewMessage("mission", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
