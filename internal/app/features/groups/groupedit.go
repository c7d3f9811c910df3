// internal/app/features/groups/groupedit.go
package groups

import (
	"context"
	"errors"
	"net/http"

	groupstore "github.com/dalemusser/larder/internal/app/store/groups"
	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/htmlsanitize"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
)

// HandleUpdateGroup handles PATCH /api/groups/{gid} (owner only).
func (h *Handler) HandleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "update group", err)
		return
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, "update group", err)
		return
	}
	var in groupInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "update group", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := authz.RequireOwner(ctx, membershipstore.New(h.DB), gid, uid)
	if err != nil {
		httperr.Respond(w, h.Log, "update group: membership", err)
		return
	}

	gstore := groupstore.New(h.DB)
	old, err := gstore.GetByID(ctx, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "update group: load", err)
		return
	}
	g, err := gstore.Rename(ctx, gid, htmlsanitize.PlainText(in.Name))
	if errors.Is(err, groupstore.ErrNameRequired) {
		httperr.Write(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "update group", err)
		return
	}
	if old.Name != g.Name {
		h.Audit.GroupRenamed(ctx, r, uid, gid, old.Name, g.Name)
	}
	httperr.JSON(w, http.StatusOK, groupView{Group: g, Role: m.Role, JoinedAt: m.JoinedAt})
}
