package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/luzviva/rotina-pixel-gamer/internal/auth"
)

// ActorContext attaches the acting profile to the request context. The
// frontend runs on a shared family device and reports which profile is
// active and which screen mode was unlocked; the PIN verify endpoint is
// what grants parent mode in the first place.
func ActorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		profileID := r.Header.Get("X-Profile-ID")
		if profileID == "" {
			next.ServeHTTP(w, r)
			return
		}
		mode := r.Header.Get("X-Screen-Mode")
		if mode != "parent" {
			mode = "child"
		}
		ctx := auth.WithActor(r.Context(), auth.Actor{UserID: profileID, Mode: mode})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireParent rejects requests that have not unlocked the parent
// screen. Management endpoints sit behind this so a child cannot mint
// coins or edit the store from their own screen.
func RequireParent(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsParent(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "parent mode required"})
			return
		}
		next(w, r)
	}
}
