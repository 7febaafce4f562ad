package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the REST surface and the realtime endpoint.
func NewRouter(h *Handler, ws *WsHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(api chi.Router) {
		api.Post("/login", h.Login)
		api.Post("/logout", h.Logout)
		api.Get("/messages", h.History)
		api.Get("/messages/search", h.SearchMessages)
	})

	r.Post("/upload", h.Upload)
	r.Get("/files/{name}", h.Download)
	r.Get("/screenshare", h.ScreenShare)
	r.Get("/remotecontrol", h.RemoteControl)
	r.Get("/healthz", h.Health)
	r.Get("/ws", ws.ServeHTTP)

	return r
}
