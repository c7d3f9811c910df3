// internal/app/features/categories/handler.go
package categories

import (
	"context"
	"net/http"

	categorystore "github.com/dalemusser/larder/internal/app/store/categories"
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the shared category list.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

// ServeCategories handles GET /api/categories.
func (h *Handler) ServeCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cats, err := categorystore.New(h.DB).List(ctx)
	if err != nil {
		httperr.Respond(w, h.Log, "list categories", err)
		return
	}
	httperr.JSON(w, http.StatusOK, cats)
}

// Routes returns the router mounted at /api/categories.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/", h.ServeCategories)
	return r
}
