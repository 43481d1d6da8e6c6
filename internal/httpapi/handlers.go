package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"

	"github.com/DoyleJ11/ludo-sync/internal/session"
	"github.com/DoyleJ11/ludo-sync/internal/ws"
)

// Controller is what the local surface needs from the session.
type Controller interface {
	ws.Session
	View() (session.View, error)
}

type statusResponse struct {
	Status        string `json:"status"`
	PlayerID      string `json:"player_id"`
	GameID        string `json:"game_id,omitempty"`
	Offline       bool   `json:"offline"`
	Reconnecting  bool   `json:"reconnecting"`
	Animating     bool   `json:"animating"`
	PendingMoves  bool   `json:"pending_moves"`
	PendingAction string `json:"pending_action,omitempty"`
	Version       int    `json:"version"`
	Subscribers   int    `json:"subscribers"`
	LastFrame     string `json:"last_frame"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Status(c Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := c.View()
		if err != nil {
			writeError(w, err)
			return
		}
		last := "never"
		if !v.LastFrame.IsZero() {
			last = humanize.Time(v.LastFrame)
		}
		writeJSON(w, http.StatusOK, statusResponse{
			Status:        v.Status.String(),
			PlayerID:      v.PlayerID,
			GameID:        v.GameID,
			Offline:       v.Offline,
			Reconnecting:  v.Reconnecting,
			Animating:     v.Animating,
			PendingMoves:  v.PendingMoves,
			PendingAction: v.PendingAction,
			Version:       v.Version,
			Subscribers:   v.Subscribers,
			LastFrame:     last,
		})
	}
}

// State returns the latest snapshot.
func State(c Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := c.View()
		if err != nil {
			writeError(w, err)
			return
		}
		if v.Snapshot == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "no game state yet"})
			return
		}
		writeJSON(w, http.StatusOK, v.Snapshot)
	}
}

// Act runs an action without arguments. Success means the action was sent,
// not that the server accepted it.
func Act(action func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := action(); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func JoinGame(c Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		Act(func() error { return c.JoinGame(id) })(w, r)
	}
}

func Choose(c Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "choice must be a positive number"})
			return
		}
		Act(func() error { return c.Choose(n) })(w, r)
	}
}

// Animation takes presentation signals: /animation/start and /animation/complete.
func Animation(c Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch chi.URLParam(r, "phase") {
		case "start":
			Act(c.AnimationStarted)(w, r)
		case "complete":
			Act(c.AnimationCompleted)(w, r)
		default:
			http.NotFound(w, r)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusConflict
	if errors.Is(err, session.ErrClosed) {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
