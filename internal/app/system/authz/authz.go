// internal/app/system/authz/authz.go
package authz

import (
	"context"
	"errors"
	"net/http"

	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Membership looks up a user's membership in a group. Implementations
// return membershipstore.ErrNotMember when there is none.
type Membership interface {
	Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMember, error)
}

// Client-facing authorization failures.
var (
	ErrNotGroupMember = httperr.New(http.StatusForbidden, "you are not a member of this group")
	ErrOwnerOnly      = httperr.New(http.StatusForbidden, "only group owners can do this")
)

// UserID returns the signed-in user's ObjectID. ok is false when nobody is
// signed in or the session id is malformed, so callers can fail closed.
func UserID(r *http.Request) (primitive.ObjectID, bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}

// RequireUserID is UserID returning httperr.ErrUnauthorized.
func RequireUserID(r *http.Request) (primitive.ObjectID, error) {
	id, ok := UserID(r)
	if !ok {
		return primitive.NilObjectID, httperr.ErrUnauthorized
	}
	return id, nil
}

// RequireMember returns the caller's membership of groupID, or
// ErrNotGroupMember.
func RequireMember(ctx context.Context, m Membership, groupID, userID primitive.ObjectID) (models.GroupMember, error) {
	gm, err := m.Get(ctx, groupID, userID)
	if errors.Is(err, membershipstore.ErrNotMember) {
		return models.GroupMember{}, ErrNotGroupMember
	}
	if err != nil {
		return models.GroupMember{}, err
	}
	return gm, nil
}

// RequireOwner is RequireMember that also demands the owner role.
func RequireOwner(ctx context.Context, m Membership, groupID, userID primitive.ObjectID) (models.GroupMember, error) {
	gm, err := RequireMember(ctx, m, groupID, userID)
	if err != nil {
		return gm, err
	}
	if gm.Role != models.RoleOwner {
		return models.GroupMember{}, ErrOwnerOnly
	}
	return gm, nil
}
