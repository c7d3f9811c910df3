// internal/app/features/authapi/routes.go
package authapi

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
)

// Routes returns the router mounted at /api/auth. All routes are public;
// /me answers 401 when signed out.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/signup", h.HandleSignUp)
	r.Post("/login", h.HandleLogin)
	r.Post("/logout", h.HandleLogout)
	r.Get("/me", h.ServeMe)
	r.Post("/password/reset-request", h.HandleResetRequest)
	r.Post("/password/reset", h.HandleReset)
	return r
}

func humanDuration(d time.Duration) string {
	switch {
	case d == time.Hour:
		return "1 hour"
	case d%time.Hour == 0:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	case d%time.Minute == 0:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	default:
		return d.String()
	}
}
