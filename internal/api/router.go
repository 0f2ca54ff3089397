package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc BoardService, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/boards", h.ListBoards)
	r.Post("/boards", h.CreateBoard)
	r.Route("/boards/{id}", func(r chi.Router) {
		r.Get("/", h.GetBoard)
		r.Delete("/", h.DeleteBoard)

		r.Get("/events", h.EventLog)
		r.Post("/events", h.ApplyEvent)
		r.Post("/remote-events", h.ApplyRemoteEvent)

		r.Post("/undo", h.Undo)
		r.Post("/redo", h.Redo)
		r.Put("/viewport", h.SetViewport)
		r.Post("/transient", h.Transient)

		r.Put("/tool", h.SetTool)
		r.Post("/pointer", h.Pointer)
		r.Get("/capabilities", h.Capabilities)

		r.Post("/copy", h.Copy)
		r.Post("/paste", h.Paste)

		r.Get("/export/{format}", h.Export)
	})

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
