// internal/app/features/groups/members.go
package groups

import (
	"context"
	"errors"
	"net/http"

	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	settingsstore "github.com/dalemusser/larder/internal/app/store/notifysettings"
	userstore "github.com/dalemusser/larder/internal/app/store/users"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/normalize"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/app/system/txn"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ServeMembers handles GET /api/groups/{gid}/members, oldest member first.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "list members", err)
		return
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, "list members", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	mstore := membershipstore.New(h.DB)
	if _, err := authz.RequireMember(ctx, mstore, gid, uid); err != nil {
		httperr.Respond(w, h.Log, "list members: membership", err)
		return
	}
	members, err := mstore.ListMembers(ctx, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "list members", err)
		return
	}
	if members == nil {
		members = []models.GroupMemberWithUser{}
	}
	httperr.JSON(w, http.StatusOK, members)
}

// HandleAddMember handles POST /api/groups/{gid}/members (owner only). The
// new member must already have an account.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "add member", err)
		return
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, "add member", err)
		return
	}
	var in addMemberInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "add member", err)
		return
	}
	email := normalize.Email(in.Email)
	if !validate.SimpleEmailValid(email) {
		httperr.Write(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	role := in.Role
	if role == "" {
		role = models.RoleMember
	}
	if !models.IsValidRole(role) {
		httperr.Write(w, http.StatusBadRequest, `role must be "owner" or "member"`)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	mstore := membershipstore.New(h.DB)
	if _, err := authz.RequireOwner(ctx, mstore, gid, uid); err != nil {
		httperr.Respond(w, h.Log, "add member: membership", err)
		return
	}

	u, err := userstore.New(h.DB).GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Write(w, http.StatusNotFound, "no account exists with that email")
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "add member: lookup", err)
		return
	}

	m, err := mstore.Add(ctx, gid, u.ID, role)
	if errors.Is(err, membershipstore.ErrDuplicateMembership) {
		httperr.Write(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "add member", err)
		return
	}

	h.Log.Info("member added",
		zap.String("group_id", gid.Hex()),
		zap.String("user_id", u.ID.Hex()),
		zap.String("role", role))
	h.Audit.MemberAdded(ctx, r, uid, gid, u.ID, role)
	httperr.JSON(w, http.StatusCreated, models.GroupMemberWithUser{
		GroupMember: m,
		Email:       u.Email,
		FullName:    u.FullName,
	})
}

// HandleRemoveMember handles DELETE /api/groups/{gid}/members/{uid}. Owners
// may remove anyone; members may only remove themselves. The last owner
// cannot leave.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	caller, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "remove member", err)
		return
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, "remove member", err)
		return
	}
	target, err := httperr.PathID(r, "uid")
	if err != nil {
		httperr.Respond(w, h.Log, "remove member", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	mstore := membershipstore.New(h.DB)
	if target == caller {
		_, err = authz.RequireMember(ctx, mstore, gid, caller)
	} else {
		_, err = authz.RequireOwner(ctx, mstore, gid, caller)
	}
	if err != nil {
		httperr.Respond(w, h.Log, "remove member: membership", err)
		return
	}

	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		return removeMember(ctx, h.DB, gid, target)
	})
	switch {
	case errors.Is(err, membershipstore.ErrNotMember):
		httperr.Write(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, membershipstore.ErrLastOwner):
		httperr.Write(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		httperr.Respond(w, h.Log, "remove member", err)
		return
	}

	h.Log.Info("member removed",
		zap.String("group_id", gid.Hex()),
		zap.String("user_id", target.Hex()),
		zap.String("by", caller.Hex()))
	h.Audit.MemberRemoved(ctx, r, caller, gid, target)
	w.WriteHeader(http.StatusNoContent)
}

// removeMember drops the membership and the user's alert settings for the
// group, so no scheduled alert reaches a former member.
func removeMember(ctx context.Context, db *mongo.Database, gid, uid primitive.ObjectID) error {
	if err := membershipstore.New(db).Remove(ctx, gid, uid); err != nil {
		return err
	}
	_, err := settingsstore.New(db).DeleteForMember(ctx, gid, uid)
	return err
}
