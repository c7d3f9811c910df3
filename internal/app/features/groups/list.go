// internal/app/features/groups/list.go
package groups

import (
	"context"
	"net/http"

	groupstore "github.com/dalemusser/larder/internal/app/store/groups"
	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeGroups handles GET /api/groups: the caller's groups, most recently
// joined first.
func (h *Handler) ServeGroups(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "list groups", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	mems, err := membershipstore.New(h.DB).ListByUser(ctx, uid)
	if err != nil {
		httperr.Respond(w, h.Log, "list groups: memberships", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(mems))
	for _, m := range mems {
		ids = append(ids, m.GroupID)
	}
	byID, err := groupstore.New(h.DB).GetMany(ctx, ids)
	if err != nil {
		httperr.Respond(w, h.Log, "list groups: groups", err)
		return
	}

	out := make([]groupView, 0, len(mems))
	for _, m := range mems {
		g, ok := byID[m.GroupID]
		if !ok {
			// Dangling membership from an interrupted delete.
			continue
		}
		out = append(out, groupView{Group: g, Role: m.Role, JoinedAt: m.JoinedAt})
	}
	httperr.JSON(w, http.StatusOK, out)
}

// ServeGroup handles GET /api/groups/{gid}.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "get group", err)
		return
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, "get group", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := authz.RequireMember(ctx, membershipstore.New(h.DB), gid, uid)
	if err != nil {
		httperr.Respond(w, h.Log, "get group: membership", err)
		return
	}
	g, err := groupstore.New(h.DB).GetByID(ctx, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "get group", err)
		return
	}
	httperr.JSON(w, http.StatusOK, groupView{Group: g, Role: m.Role, JoinedAt: m.JoinedAt})
}
