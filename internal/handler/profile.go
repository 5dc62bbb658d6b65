package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/luzviva/rotina-pixel-gamer/internal/auth"
	"github.com/luzviva/rotina-pixel-gamer/internal/middleware"
	"github.com/luzviva/rotina-pixel-gamer/internal/model"
	"github.com/luzviva/rotina-pixel-gamer/internal/store"
)

const (
	pinAttemptLimit  = 5
	pinAttemptWindow = time.Minute
)

type ProfileHandler struct {
	profileStore *store.ProfileStore
	limiter      *middleware.RateLimiter
	logger       *slog.Logger
}

func NewProfileHandler(ps *store.ProfileStore, limiter *middleware.RateLimiter, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profileStore: ps, limiter: limiter, logger: logger}
}

type profileRequest struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	UserType    string `json:"user_type"`
}

func (h *ProfileHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if req.DisplayName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "display_name is required"})
		return
	}
	if req.UserType != model.UserTypeParent && req.UserType != model.UserTypeChild {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_type must be parent or child"})
		return
	}

	profile, err := h.profileStore.Create(req.UserID, req.DisplayName, req.UserType)
	if err != nil {
		h.logger.Error("failed to create profile", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create profile"})
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.profileStore.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list profiles"})
		return
	}
	if profiles == nil {
		profiles = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, profiles)
}

func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileStore.GetByID(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get profile"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// SetPIN replaces the parent PIN. The stored value is a bcrypt hash;
// until a PIN is set, the well-known default applies.
func (h *ProfileHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	profile, err := h.profileStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get profile"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}
	if profile.UserType != model.UserTypeParent {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only parent profiles carry a PIN"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.PIN) < 4 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pin must be at least 4 digits"})
		return
	}

	hash, err := auth.HashPIN(req.PIN)
	if err != nil {
		h.logger.Error("failed to hash pin", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set pin"})
		return
	}
	if err := h.profileStore.SetPIN(id, hash); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set pin"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// VerifyPIN checks a PIN attempt against the stored hash. Attempts are
// rate limited per client address to slow down guessing.
func (h *ProfileHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	key := "pin:" + middleware.RealIP(r)
	if !h.limiter.Allow(key, pinAttemptLimit, pinAttemptWindow) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many attempts, try again later"})
		return
	}

	profile, err := h.profileStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get profile"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	hash, err := h.profileStore.GetPINHash(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to verify pin"})
		return
	}
	if err := auth.VerifyPIN(hash, req.PIN); err != nil {
		if errors.Is(err, auth.ErrWrongPIN) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "wrong pin"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to verify pin"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"verified": true, "profile_id": id})
}

func (h *ProfileHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	profile, err := h.profileStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get profile"})
		return
	}
	if profile == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
		return
	}

	if err := h.profileStore.ClearPIN(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear pin"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
