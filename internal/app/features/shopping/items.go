// internal/app/features/shopping/items.go
package shopping

import (
	"context"
	"errors"
	"net/http"

	categorystore "github.com/dalemusser/larder/internal/app/store/categories"
	itemstore "github.com/dalemusser/larder/internal/app/store/listitems"
	"github.com/dalemusser/larder/internal/app/system/htmlsanitize"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// itemInput is the create and patch body. An empty category_id clears it.
type itemInput struct {
	Name       *string `json:"name"`
	Quantity   *string `json:"quantity"`
	CategoryID *string `json:"category_id"`
	SortOrder  *int    `json:"sort_order"`
}

type reorderInput struct {
	ItemIDs []string `json:"item_ids"`
}

var errBadCategory = httperr.BadRequest("unknown category")

func (in itemInput) toPatch(ctx context.Context, db *mongo.Database) (itemstore.Patch, error) {
	p := itemstore.Patch{Quantity: in.Quantity, SortOrder: in.SortOrder}
	if in.Name != nil {
		name := htmlsanitize.PlainText(*in.Name)
		p.Name = &name
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			p.ClearCategory = true
		} else {
			cid, err := categoryID(ctx, db, *in.CategoryID)
			if err != nil {
				return p, err
			}
			p.CategoryID = &cid
		}
	}
	return p, nil
}

func categoryID(ctx context.Context, db *mongo.Database, hex string) (primitive.ObjectID, error) {
	cid, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errBadCategory
	}
	ok, err := categorystore.New(db).Exists(ctx, cid)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !ok {
		return primitive.NilObjectID, errBadCategory
	}
	return cid, nil
}

func itemStoreError(err error) error {
	if errors.Is(err, itemstore.ErrNameRequired) {
		return httperr.BadRequest(err.Error())
	}
	return err
}

// ServeItems handles GET /api/lists/{lid}/items.
func (h *Handler) ServeItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, _, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "list items", err)
		return
	}
	items, err := itemstore.New(h.DB).List(ctx, l.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "list items", err)
		return
	}
	if items == nil {
		items = []models.ShoppingListItem{}
	}
	httperr.JSON(w, http.StatusOK, items)
}

// HandleAddItem handles POST /api/lists/{lid}/items. The item goes to the
// end of the list.
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var in itemInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "add item", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, _, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "add item", err)
		return
	}
	p, err := in.toPatch(ctx, h.DB)
	if err != nil {
		httperr.Respond(w, h.Log, "add item", err)
		return
	}
	it := models.ShoppingListItem{ListID: l.ID, CategoryID: p.CategoryID}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}

	store := itemstore.New(h.DB)
	created, err := store.Create(ctx, it)
	if err != nil {
		httperr.Respond(w, h.Log, "add item", itemStoreError(err))
		return
	}
	full, err := store.Get(ctx, created.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "add item: reload", err)
		return
	}

	h.publishItem(ctx, realtime.Insert, l.ID, full, primitive.NilObjectID)
	httperr.JSON(w, http.StatusCreated, full)
}

// HandleUpdateItem handles PATCH /api/list-items/{iid}.
func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var in itemInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "update item", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, _, _, err := h.loadItem(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "update item", err)
		return
	}
	p, err := in.toPatch(ctx, h.DB)
	if err != nil {
		httperr.Respond(w, h.Log, "update item", err)
		return
	}

	store := itemstore.New(h.DB)
	if _, err := store.Update(ctx, it.ID, p); err != nil {
		httperr.Respond(w, h.Log, "update item", itemStoreError(err))
		return
	}
	full, err := store.Get(ctx, it.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "update item: reload", err)
		return
	}

	h.publishItem(ctx, realtime.Update, it.ListID, full, it.ID)
	httperr.JSON(w, http.StatusOK, full)
}

// HandleToggleItem handles POST /api/list-items/{iid}/toggle. Marking an
// item purchased records who bought it and when.
func (h *Handler) HandleToggleItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, _, uid, err := h.loadItem(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "toggle item", err)
		return
	}

	store := itemstore.New(h.DB)
	if _, err := store.SetPurchased(ctx, it.ID, !it.IsPurchased, uid); err != nil {
		httperr.Respond(w, h.Log, "toggle item", err)
		return
	}
	full, err := store.Get(ctx, it.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "toggle item: reload", err)
		return
	}

	h.publishItem(ctx, realtime.Update, it.ListID, full, it.ID)
	httperr.JSON(w, http.StatusOK, full)
}

// HandleDeleteItem handles DELETE /api/list-items/{iid}.
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	it, _, _, err := h.loadItem(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "delete item", err)
		return
	}
	n, err := itemstore.New(h.DB).Delete(ctx, it.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "delete item", err)
		return
	}
	if n == 0 {
		httperr.Respond(w, h.Log, "delete item", errItemNotFound)
		return
	}

	h.publishItem(ctx, realtime.Delete, it.ListID, nil, it.ID)
	w.WriteHeader(http.StatusNoContent)
}
