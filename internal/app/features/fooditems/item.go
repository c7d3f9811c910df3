// internal/app/features/fooditems/item.go
package fooditems

import (
	"context"
	"errors"
	"net/http"

	fooditemstore "github.com/dalemusser/larder/internal/app/store/fooditems"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var errItemNotFound = httperr.New(http.StatusNotFound, "food item not found")

// loadItem fetches {id} and checks it belongs to group gid.
func (h *Handler) loadItem(ctx context.Context, r *http.Request, gid primitive.ObjectID) (models.FoodItemWithCategory, error) {
	id, err := httperr.PathID(r, "id")
	if err != nil {
		return models.FoodItemWithCategory{}, err
	}
	it, err := fooditemstore.New(h.DB).Get(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.FoodItemWithCategory{}, errItemNotFound
	}
	if err != nil {
		return models.FoodItemWithCategory{}, err
	}
	if it.GroupID != gid {
		return models.FoodItemWithCategory{}, errItemNotFound
	}
	return it, nil
}

// ServeItem handles GET /api/groups/{gid}/food-items/{id}.
func (h *Handler) ServeItem(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.requireGroup(w, r, "get food item")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, err := h.loadItem(ctx, r, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "get food item", err)
		return
	}
	httperr.JSON(w, http.StatusOK, it)
}

// HandleCreate handles POST /api/groups/{gid}/food-items.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.requireGroup(w, r, "create food item")
	if !ok {
		return
	}
	uid, _ := authz.UserID(r)

	var in foodItemInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "create food item", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, err := in.toItem(ctx, h.DB, gid, uid)
	if err != nil {
		httperr.Respond(w, h.Log, "create food item", err)
		return
	}
	store := fooditemstore.New(h.DB)
	created, err := store.Create(ctx, it)
	if err != nil {
		httperr.Respond(w, h.Log, "create food item", storeError(err))
		return
	}
	full, err := store.Get(ctx, created.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "create food item: reload", err)
		return
	}

	h.publish(ctx, realtime.Insert, gid, full, primitive.NilObjectID)
	h.Log.Debug("food item created",
		zap.String("group_id", gid.Hex()),
		zap.String("item_id", full.ID.Hex()),
		zap.String("expiry", dateOnly(full.ExpiryDate)))
	httperr.JSON(w, http.StatusCreated, full)
}

// HandleUpdate handles PATCH /api/groups/{gid}/food-items/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.requireGroup(w, r, "update food item")
	if !ok {
		return
	}
	var in foodItemInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "update food item", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cur, err := h.loadItem(ctx, r, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "update food item", err)
		return
	}
	p, err := in.toPatch(ctx, h.DB)
	if err != nil {
		httperr.Respond(w, h.Log, "update food item", err)
		return
	}
	if p.Empty() {
		httperr.JSON(w, http.StatusOK, cur)
		return
	}

	store := fooditemstore.New(h.DB)
	if _, err := store.Update(ctx, cur.ID, p); err != nil {
		httperr.Respond(w, h.Log, "update food item", storeError(err))
		return
	}
	full, err := store.Get(ctx, cur.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "update food item: reload", err)
		return
	}

	h.publish(ctx, realtime.Update, gid, full, full.ID)
	httperr.JSON(w, http.StatusOK, full)
}

// HandleDelete handles DELETE /api/groups/{gid}/food-items/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	gid, ok := h.requireGroup(w, r, "delete food item")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, err := h.loadItem(ctx, r, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "delete food item", err)
		return
	}
	n, err := fooditemstore.New(h.DB).Delete(ctx, it.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "delete food item", err)
		return
	}
	if n == 0 {
		httperr.Respond(w, h.Log, "delete food item", errItemNotFound)
		return
	}

	h.publish(ctx, realtime.Delete, gid, nil, it.ID)
	w.WriteHeader(http.StatusNoContent)
}
