// internal/app/features/shopping/bulk.go
package shopping

import (
	"context"
	"net/http"

	itemstore "github.com/dalemusser/larder/internal/app/store/listitems"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// HandleReorder handles POST /api/lists/{lid}/items/reorder. Each item's
// sort_order becomes its index in item_ids; ids from other lists are
// ignored. Responds with the reordered list.
func (h *Handler) HandleReorder(w http.ResponseWriter, r *http.Request) {
	var in reorderInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "reorder items", err)
		return
	}
	ids := make([]primitive.ObjectID, 0, len(in.ItemIDs))
	for _, s := range in.ItemIDs {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httperr.Write(w, http.StatusBadRequest, "invalid item id "+s)
			return
		}
		ids = append(ids, id)
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "reorder items", err)
		return
	}

	store := itemstore.New(h.DB)
	if err := store.Reorder(ctx, l.ID, ids); err != nil {
		httperr.Respond(w, h.Log, "reorder items", err)
		return
	}
	items, err := store.List(ctx, l.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "reorder items: reload", err)
		return
	}

	moved := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		moved[id] = true
	}
	for _, it := range items {
		if moved[it.ID] {
			h.publishItem(ctx, realtime.Update, l.ID, it, it.ID)
		}
	}
	if items == nil {
		items = []models.ShoppingListItem{}
	}
	httperr.JSON(w, http.StatusOK, items)
}

// HandleClearPurchased handles POST /api/lists/{lid}/items/clear-purchased.
func (h *Handler) HandleClearPurchased(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, _, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "clear purchased", err)
		return
	}
	ids, err := itemstore.New(h.DB).ClearPurchased(ctx, l.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "clear purchased", err)
		return
	}
	for _, id := range ids {
		h.publishItem(ctx, realtime.Delete, l.ID, nil, id)
	}
	h.Log.Debug("cleared purchased items", zap.String("list_id", l.ID.Hex()), zap.Int("count", len(ids)))
	httperr.JSON(w, http.StatusOK, map[string]int{"deleted": len(ids)})
}

// HandleMarkAllPurchased handles POST /api/lists/{lid}/items/mark-all-purchased.
func (h *Handler) HandleMarkAllPurchased(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, uid, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "mark all purchased", err)
		return
	}
	items, err := itemstore.New(h.DB).MarkAllPurchased(ctx, l.ID, uid)
	if err != nil {
		httperr.Respond(w, h.Log, "mark all purchased", err)
		return
	}
	for _, it := range items {
		h.publishItem(ctx, realtime.Update, l.ID, it, it.ID)
	}
	httperr.JSON(w, http.StatusOK, items)
}
