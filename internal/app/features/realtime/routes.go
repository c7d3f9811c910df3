// internal/app/features/realtime/routes.go
package realtime

import (
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/realtime.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/", h.ServeFeed)
	return r
}
