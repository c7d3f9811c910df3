// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/notifications.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/vapid-public-key", h.ServeVAPIDKey)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/settings", h.ServeSettings)
		pr.Put("/settings", h.HandleSaveSettings)
		pr.Get("/subscriptions", h.ServeSubscriptions)
		pr.Post("/subscriptions", h.HandleSubscribe)
		pr.Delete("/subscriptions", h.HandleUnsubscribe)
		pr.Post("/test", h.HandleTest)
	})
	return r
}
