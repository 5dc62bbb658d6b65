package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/ledger"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/recurrence"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
	"github.com/luzviva/rotina-pixel-gamer/internal/websocket"
)

type ChildHandler struct {
	childStore *store.ChildStore
	ledger     *ledger.Ledger
	hub        *websocket.Hub
	logger     *slog.Logger
}

func NewChildHandler(cs *store.ChildStore, l *ledger.Ledger, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{childStore: cs, ledger: l, hub: hub, logger: logger}
}

func (h *ChildHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type childRequest struct {
	Name      string `json:"name"`
	BirthDate string `json:"birth_date"`
	Gender    string `json:"gender"`
	AvatarURL string `json:"avatar_url"`
	ParentID  string `json:"parent_id"`
}

func (r *childRequest) birthDate() (*time.Time, error) {
	if strings.TrimSpace(r.BirthDate) == "" {
		return nil, nil
	}
	bd, err := recurrence.ParseDate(r.BirthDate)
	if err != nil {
		return nil, err
	}
	return &bd, nil
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	bd, err := req.birthDate()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid birth_date"})
		return
	}

	child, err := h.childStore.Create(req.Name, bd, req.Gender, req.AvatarURL, req.ParentID)
	if err != nil {
		h.logger.Error("failed to create child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create child"})
		return
	}

	h.broadcast(websocket.NewMessage("child", "created", child.ID, nil))
	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		children []model.Child
		err      error
	)
	if parentID := r.URL.Query().Get("parent_id"); parentID != "" {
		children, err = h.childStore.ListByParent(parentID)
	} else {
		children, err = h.childStore.List()
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list children"})
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Get(w http.ResponseWriter, r *http.Request) {
	child, err := h.childStore.GetByID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}
	writeJSON(w, http.StatusOK, child)
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.childStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	bd, err := req.birthDate()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid birth_date"})
		return
	}

	child, err := h.childStore.Update(id, req.Name, req.Gender, req.AvatarURL, bd)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update child"})
		return
	}

	h.broadcast(websocket.NewMessage("child", "updated", id, nil))
	writeJSON(w, http.StatusOK, child)
}

func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.childStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	if err := h.childStore.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete child"})
		return
	}

	h.broadcast(websocket.NewMessage("child", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChildHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	balance, err := h.ledger.Balance(id)
	if err != nil {
		if err == ledger.ErrChildNotFound {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get balance"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"child_id": id, "coin_balance": balance})
}

// Adjust applies a manual coin grant or deduction by a parent. A positive
// amount credits, a negative amount debits.
func (h *ChildHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req struct {
		Amount int    `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Amount == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "amount must be non-zero"})
		return
	}

	var (
		balance int
		err     error
	)
	if req.Amount > 0 {
		balance, err = h.ledger.Credit(id, req.Amount)
	} else {
		balance, err = h.ledger.Debit(id, -req.Amount)
	}
	switch err {
	case nil:
	case ledger.ErrChildNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	case ledger.ErrInsufficientBalance:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "insufficient balance"})
		return
	default:
		h.logger.Error("failed to adjust balance", "child_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to adjust balance"})
		return
	}

	h.broadcast(websocket.NewMessage("child", "balance_changed", id, map[string]any{"coin_balance": balance}))
	writeJSON(w, http.StatusOK, map[string]any{"child_id": id, "coin_balance": balance})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
