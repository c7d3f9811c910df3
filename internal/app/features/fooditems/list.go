// internal/app/features/fooditems/list.go
package fooditems

import (
	"context"
	"net/http"

	fooditemstore "github.com/dalemusser/larder/internal/app/store/fooditems"
	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/expiry"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validStatuses = map[expiry.Status]bool{
	expiry.Expired: true,
	expiry.Warning: true,
	expiry.Caution: true,
	expiry.Safe:    true,
	expiry.None:    true,
}

// ServeList handles GET /api/groups/{gid}/food-items. Optional query
// filters: location, category, status.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.requireGroup(w, r, "list food items")
	if !ok {
		return
	}

	var f fooditemstore.Filter
	if loc := models.StorageLocation(query.Get(r, "location")); loc != "" {
		if !loc.IsValid() {
			httperr.Write(w, http.StatusBadRequest, "invalid location")
			return
		}
		f.Location = loc
	}
	if c := query.Get(r, "category"); c != "" {
		cid, err := primitive.ObjectIDFromHex(c)
		if err != nil {
			httperr.Write(w, http.StatusBadRequest, "invalid category")
			return
		}
		f.CategoryID = &cid
	}
	status := expiry.Status(query.Get(r, "status"))
	if status != "" && !validStatuses[status] {
		httperr.Write(w, http.StatusBadRequest, "invalid status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := fooditemstore.New(h.DB).List(ctx, gid, f)
	if err != nil {
		httperr.Respond(w, h.Log, "list food items", err)
		return
	}

	out := make([]models.FoodItemWithCategory, 0, len(items))
	now := h.today()
	for _, it := range items {
		if status != "" && expiry.StatusOf(it.ExpiryDate, now) != status {
			continue
		}
		out = append(out, it)
	}
	httperr.JSON(w, http.StatusOK, out)
}

// ServeExpiring handles GET /api/groups/{gid}/expiring. Items carry their
// status and days left. With ?days=1,3,7 only expired items and items
// within one of those thresholds are returned.
func (h *Handler) ServeExpiring(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.requireGroup(w, r, "expiring items")
	if !ok {
		return
	}
	days, err := parseDays(query.Get(r, "days"))
	if err != nil {
		httperr.Respond(w, h.Log, "expiring items", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	items, err := fooditemstore.New(h.DB).ListWithExpiry(ctx, []primitive.ObjectID{gid})
	if err != nil {
		httperr.Respond(w, h.Log, "expiring items", err)
		return
	}
	out := expiry.Annotate(items, h.today())
	if days != nil {
		out = expiry.FilterForAlert(out, days)
	}
	httperr.JSON(w, http.StatusOK, out)
}

// requireGroup resolves {gid} and checks the caller belongs to it. It writes
// the error response itself when ok is false.
func (h *Handler) requireGroup(w http.ResponseWriter, r *http.Request, op string) (primitive.ObjectID, bool) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, op, err)
		return primitive.NilObjectID, false
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, op, err)
		return primitive.NilObjectID, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := authz.RequireMember(ctx, membershipstore.New(h.DB), gid, uid); err != nil {
		httperr.Respond(w, h.Log, op, err)
		return primitive.NilObjectID, false
	}
	return gid, true
}
