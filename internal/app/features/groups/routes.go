// internal/app/features/groups/routes.go
package groups

import (
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/groups. Group-scoped food item
// and shopping list routes are mounted by their own features.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.ServeGroups)
		pr.Post("/", h.HandleCreateGroup)

		pr.Get("/{gid}", h.ServeGroup)
		pr.Patch("/{gid}", h.HandleUpdateGroup)
		pr.Delete("/{gid}", h.HandleDeleteGroup)

		pr.Get("/{gid}/members", h.ServeMembers)
		pr.Post("/{gid}/members", h.HandleAddMember)
		pr.Delete("/{gid}/members/{uid}", h.HandleRemoveMember)
	})

	return r
}
