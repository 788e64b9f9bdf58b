package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pastename/internal/journal"
	"github.com/starford/pastename/internal/paste"
	"github.com/starford/pastename/internal/renamer"
	"github.com/starford/pastename/internal/settings"
	"github.com/starford/pastename/internal/workspace"
)

// Deps are the services the API exposes.
type Deps struct {
	Settings  *settings.Store
	Workspace *workspace.Service
	Renamer   *renamer.Service
	Journal   journal.Store
	Paste     *paste.Saver
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(deps Deps, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(deps)
	ah := NewAttachmentHandler(deps.Paste)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)

	// Editor focus.
	r.Get("/session", h.GetSession)
	r.Put("/session", h.SetSession)
	r.Delete("/session", h.ClearSession)

	// Rename pipeline.
	r.Post("/preview", h.Preview)
	r.Post("/rename", h.Rename)

	// Notice history.
	r.Get("/activity", h.Activity)

	// Paste upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
