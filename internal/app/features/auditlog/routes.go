// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/groups/{gid}/activity.
// Only group owners may read it.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeGroupActivity)
	})

	return r
}

// MyRoutes returns the router mounted at /api/activity.
func MyRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/", h.ServeMyActivity)
	return r
}
