package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/DoyleJ11/flychess-backend/internal/lobby"
	"github.com/DoyleJ11/flychess-backend/internal/store"
	"github.com/DoyleJ11/flychess-backend/internal/types"
)

const (
	queryTimeout  = 2 * time.Second
	defaultRecent = 20
	maxRecent     = 100
)

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// State returns the lobby's current board and turn as JSON.
func State(lb *lobby.Lobby) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		reply := make(chan lobby.View, 1)
		select {
		case lb.Inbox() <- lobby.GetState{Reply: reply}:
		case <-lb.Done():
			http.Error(w, "game server stopped", http.StatusServiceUnavailable)
			return
		case <-ctx.Done():
			http.Error(w, "game server busy", http.StatusServiceUnavailable)
			return
		}

		var v lobby.View
		select {
		case v = <-reply:
		case <-ctx.Done():
			http.Error(w, "game server busy", http.StatusServiceUnavailable)
			return
		}

		view := types.NewStateView(v.State)
		writeJSON(w, http.StatusOK, types.ServerMessage{Type: "StateSnapshot", Version: v.Version, State: &view})
	}
}

// Results lists recently finished games, newest first.
func Results(rec store.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRecent
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxRecent)
		}

		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()
		results, err := rec.Recent(ctx, limit)
		if err != nil {
			http.Error(w, "failed to load results", http.StatusInternalServerError)
			return
		}
		if results == nil {
			results = []store.Result{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
