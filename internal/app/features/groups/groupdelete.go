// internal/app/features/groups/groupdelete.go
package groups

import (
	"context"
	"net/http"

	fooditemstore "github.com/dalemusser/larder/internal/app/store/fooditems"
	groupstore "github.com/dalemusser/larder/internal/app/store/groups"
	itemstore "github.com/dalemusser/larder/internal/app/store/listitems"
	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	settingsstore "github.com/dalemusser/larder/internal/app/store/notifysettings"
	liststore "github.com/dalemusser/larder/internal/app/store/shoppinglists"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// HandleDeleteGroup handles DELETE /api/groups/{gid} (owner only).
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "delete group", err)
		return
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, "delete group", err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete group")
	defer cancel()

	if _, err := authz.RequireOwner(ctx, membershipstore.New(h.DB), gid, uid); err != nil {
		httperr.Respond(w, h.Log, "delete group: membership", err)
		return
	}
	g, err := groupstore.New(h.DB).GetByID(ctx, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "delete group: load", err)
		return
	}

	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		return deleteGroupCascade(ctx, h.DB, gid)
	})
	if err != nil {
		httperr.Respond(w, h.Log, "delete group", err)
		return
	}

	h.Log.Info("group deleted", zap.String("group_id", gid.Hex()), zap.String("by", uid.Hex()))
	h.Audit.GroupDeleted(ctx, r, uid, gid, g.Name)
	w.WriteHeader(http.StatusNoContent)
}

// deleteGroupCascade removes a group and everything it owns. Children go
// first so a partial failure never leaves them reachable without a group.
func deleteGroupCascade(ctx context.Context, db *mongo.Database, gid primitive.ObjectID) error {
	lists := liststore.New(db)
	listIDs, err := lists.IDsByGroup(ctx, gid)
	if err != nil {
		return err
	}
	if _, err := itemstore.New(db).DeleteByLists(ctx, listIDs); err != nil {
		return err
	}
	if _, err := lists.DeleteByGroup(ctx, gid); err != nil {
		return err
	}
	if _, err := fooditemstore.New(db).DeleteByGroup(ctx, gid); err != nil {
		return err
	}
	if _, err := settingsstore.New(db).DeleteByGroup(ctx, gid); err != nil {
		return err
	}
	if _, err := membershipstore.New(db).DeleteByGroup(ctx, gid); err != nil {
		return err
	}
	n, err := groupstore.New(db).Delete(ctx, gid)
	if err != nil {
		return err
	}
	if n == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
