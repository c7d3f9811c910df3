// internal/app/features/auditlog/mine.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/larder/internal/app/store/audit"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/paging"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
)

// ServeMyActivity handles GET /api/activity: recent events about the
// signed-in user (sign-ins, failed attempts, password resets, group
// membership changes), newest first.
func (h *Handler) ServeMyActivity(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "my activity", err)
		return
	}
	limit := paging.ParseLimit(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := audit.New(h.DB).GetByUser(ctx, uid, int64(limit))
	if err != nil {
		httperr.Respond(w, h.Log, "my activity", err)
		return
	}
	views, err := h.views(ctx, events)
	if err != nil {
		httperr.Respond(w, h.Log, "my activity: users", err)
		return
	}
	httperr.JSON(w, http.StatusOK, activityPage{Events: views})
}
