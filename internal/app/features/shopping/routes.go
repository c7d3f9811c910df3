// internal/app/features/shopping/routes.go
package shopping

import (
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// GroupRoutes returns the router mounted at /api/groups/{gid}/lists.
func GroupRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeLists)
		pr.Post("/", h.HandleCreateList)
	})
	return r
}

// ListRoutes returns the router mounted at /api/lists.
func ListRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/{lid}", h.ServeList)
		pr.Patch("/{lid}", h.HandleUpdateList)
		pr.Delete("/{lid}", h.HandleDeleteList)
		pr.Post("/{lid}/archive", h.HandleArchiveList)

		pr.Get("/{lid}/items", h.ServeItems)
		pr.Post("/{lid}/items", h.HandleAddItem)
		pr.Post("/{lid}/items/reorder", h.HandleReorder)
		pr.Post("/{lid}/items/clear-purchased", h.HandleClearPurchased)
		pr.Post("/{lid}/items/mark-all-purchased", h.HandleMarkAllPurchased)
	})
	return r
}

// ItemRoutes returns the router mounted at /api/list-items.
func ItemRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Patch("/{iid}", h.HandleUpdateItem)
		pr.Delete("/{iid}", h.HandleDeleteItem)
		pr.Post("/{iid}/toggle", h.HandleToggleItem)
		pr.Post("/{iid}/convert", h.HandleConvert)
	})
	return r
}
