// internal/app/features/shopping/lists.go
package shopping

import (
	"context"
	"errors"
	"net/http"

	itemstore "github.com/dalemusser/larder/internal/app/store/listitems"
	liststore "github.com/dalemusser/larder/internal/app/store/shoppinglists"
	"github.com/dalemusser/larder/internal/app/system/htmlsanitize"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/app/system/txn"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type listInput struct {
	Name     *string `json:"name"`
	IsActive *bool   `json:"is_active"`
}

func listStoreError(err error) error {
	if errors.Is(err, liststore.ErrNameRequired) {
		return httperr.BadRequest(err.Error())
	}
	return err
}

// ServeLists handles GET /api/groups/{gid}/lists: active lists, newest
// first. ?include_archived=true adds archived lists.
func (h *Handler) ServeLists(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	gid, _, err := h.requireGroup(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "list shopping lists", err)
		return
	}
	lists, err := liststore.New(h.DB).ListActive(ctx, gid, query.Get(r, "include_archived") == "true")
	if err != nil {
		httperr.Respond(w, h.Log, "list shopping lists", err)
		return
	}
	if lists == nil {
		lists = []models.ShoppingList{}
	}
	httperr.JSON(w, http.StatusOK, lists)
}

// HandleCreateList handles POST /api/groups/{gid}/lists.
func (h *Handler) HandleCreateList(w http.ResponseWriter, r *http.Request) {
	var in listInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "create shopping list", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	gid, uid, err := h.requireGroup(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "create shopping list", err)
		return
	}
	name := ""
	if in.Name != nil {
		name = htmlsanitize.PlainText(*in.Name)
	}
	l, err := liststore.New(h.DB).Create(ctx, models.ShoppingList{GroupID: gid, Name: name, CreatedBy: uid})
	if err != nil {
		httperr.Respond(w, h.Log, "create shopping list", listStoreError(err))
		return
	}

	h.publishList(ctx, realtime.Insert, gid, l, primitive.NilObjectID)
	httperr.JSON(w, http.StatusCreated, l)
}

// ServeList handles GET /api/lists/{lid}.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, _, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "get shopping list", err)
		return
	}
	httperr.JSON(w, http.StatusOK, l)
}

// HandleUpdateList handles PATCH /api/lists/{lid}.
func (h *Handler) HandleUpdateList(w http.ResponseWriter, r *http.Request) {
	var in listInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "update shopping list", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, _, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "update shopping list", err)
		return
	}
	p := liststore.Patch{IsActive: in.IsActive}
	if in.Name != nil {
		name := htmlsanitize.PlainText(*in.Name)
		p.Name = &name
	}
	updated, err := liststore.New(h.DB).Update(ctx, l.ID, p)
	if err != nil {
		httperr.Respond(w, h.Log, "update shopping list", listStoreError(err))
		return
	}

	h.publishList(ctx, realtime.Update, l.GroupID, updated, l.ID)
	httperr.JSON(w, http.StatusOK, updated)
}

// HandleArchiveList handles POST /api/lists/{lid}/archive.
func (h *Handler) HandleArchiveList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, _, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "archive shopping list", err)
		return
	}
	updated, err := liststore.New(h.DB).Archive(ctx, l.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "archive shopping list", err)
		return
	}

	h.publishList(ctx, realtime.Update, l.GroupID, updated, l.ID)
	httperr.JSON(w, http.StatusOK, updated)
}

// HandleDeleteList handles DELETE /api/lists/{lid}. Items go with it.
func (h *Handler) HandleDeleteList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, uid, err := h.loadList(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "delete shopping list", err)
		return
	}

	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		if _, err := itemstore.New(h.DB).DeleteByLists(ctx, []primitive.ObjectID{l.ID}); err != nil {
			return err
		}
		n, err := liststore.New(h.DB).Delete(ctx, l.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return mongo.ErrNoDocuments
		}
		return nil
	})
	if err != nil {
		httperr.Respond(w, h.Log, "delete shopping list", err)
		return
	}

	h.publishList(ctx, realtime.Delete, l.GroupID, nil, l.ID)
	h.Log.Info("shopping list deleted", zap.String("list_id", l.ID.Hex()), zap.String("by", uid.Hex()))
	w.WriteHeader(http.StatusNoContent)
}
