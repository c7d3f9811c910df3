// internal/app/features/shopping/access.go
package shopping

import (
	"context"
	"errors"
	"net/http"

	itemstore "github.com/dalemusser/larder/internal/app/store/listitems"
	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	liststore "github.com/dalemusser/larder/internal/app/store/shoppinglists"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	errListNotFound = httperr.New(http.StatusNotFound, "shopping list not found")
	errItemNotFound = httperr.New(http.StatusNotFound, "list item not found")
)

// requireGroup checks the caller belongs to the {gid} group.
func (h *Handler) requireGroup(ctx context.Context, r *http.Request) (gid, uid primitive.ObjectID, err error) {
	uid, err = authz.RequireUserID(r)
	if err != nil {
		return
	}
	gid, err = httperr.PathID(r, "gid")
	if err != nil {
		return
	}
	_, err = authz.RequireMember(ctx, membershipstore.New(h.DB), gid, uid)
	return
}

// loadList fetches {lid} and checks the caller belongs to its group.
func (h *Handler) loadList(ctx context.Context, r *http.Request) (models.ShoppingList, primitive.ObjectID, error) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		return models.ShoppingList{}, uid, err
	}
	lid, err := httperr.PathID(r, "lid")
	if err != nil {
		return models.ShoppingList{}, uid, err
	}
	l, err := h.listAccess(ctx, lid, uid)
	return l, uid, err
}

// loadItem fetches {iid} and checks the caller belongs to the group owning
// its list.
func (h *Handler) loadItem(ctx context.Context, r *http.Request) (models.ShoppingListItem, models.ShoppingList, primitive.ObjectID, error) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		return models.ShoppingListItem{}, models.ShoppingList{}, uid, err
	}
	iid, err := httperr.PathID(r, "iid")
	if err != nil {
		return models.ShoppingListItem{}, models.ShoppingList{}, uid, err
	}
	it, err := itemstore.New(h.DB).Get(ctx, iid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ShoppingListItem{}, models.ShoppingList{}, uid, errItemNotFound
	}
	if err != nil {
		return models.ShoppingListItem{}, models.ShoppingList{}, uid, err
	}
	l, err := h.listAccess(ctx, it.ListID, uid)
	if errors.Is(err, errListNotFound) {
		// Orphaned item.
		err = errItemNotFound
	}
	return it, l, uid, err
}

func (h *Handler) listAccess(ctx context.Context, lid, uid primitive.ObjectID) (models.ShoppingList, error) {
	l, err := liststore.New(h.DB).Get(ctx, lid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ShoppingList{}, errListNotFound
	}
	if err != nil {
		return models.ShoppingList{}, err
	}
	if _, err := authz.RequireMember(ctx, membershipstore.New(h.DB), l.GroupID, uid); err != nil {
		return models.ShoppingList{}, err
	}
	return l, nil
}
