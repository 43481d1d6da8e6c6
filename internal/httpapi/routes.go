package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-sync/internal/ws"
)

func SetupRoutes(c Controller, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Read-only
	r.Get("/healthz", Healthz)
	r.Get("/status", Status(c))
	r.Get("/state", State(c))
	r.Get("/ws", ws.Handler(c, log.Named("ws")))

	// Control
	r.Post("/games", Act(c.CreateGame))
	r.Post("/games/{id}/join", JoinGame(c))
	r.Route("/actions", func(r chi.Router) {
		r.Post("/roll", Act(c.RollDice))
		r.Post("/choose/{n}", Choose(c))
		r.Post("/state", Act(c.RequestState))
		r.Post("/leave", Act(c.LeaveGame))
	})
	r.Post("/animation/{phase}", Animation(c))
	return r
}
