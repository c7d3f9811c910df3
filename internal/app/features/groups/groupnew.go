// internal/app/features/groups/groupnew.go
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
	"github.com/dalemusser/larder/internal/app/system/txn"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.uber.org/zap"
)

// HandleCreateGroup handles POST /api/groups. The caller becomes the
// group's owner.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "create group", err)
		return
	}
	var in groupInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "create group", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var (
		g models.Group
		m models.GroupMember
	)
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		var err error
		g, err = groupstore.New(h.DB).Create(ctx, models.Group{Name: htmlsanitize.PlainText(in.Name)})
		if err != nil {
			return err
		}
		m, err = membershipstore.New(h.DB).Add(ctx, g.ID, uid, models.RoleOwner)
		return err
	})
	if errors.Is(err, groupstore.ErrNameRequired) {
		httperr.Write(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "create group", err)
		return
	}

	h.Log.Info("group created", zap.String("group_id", g.ID.Hex()), zap.String("owner", uid.Hex()))
	h.Audit.GroupCreated(ctx, r, uid, g.ID, g.Name)
	httperr.JSON(w, http.StatusCreated, groupView{Group: g, Role: m.Role, JoinedAt: m.JoinedAt})
}
