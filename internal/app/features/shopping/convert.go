// internal/app/features/shopping/convert.go
package shopping

import (
	"context"
	"errors"
	"net/http"

	fooditemstore "github.com/dalemusser/larder/internal/app/store/fooditems"
	itemstore "github.com/dalemusser/larder/internal/app/store/listitems"
	"github.com/dalemusser/larder/internal/app/system/expiry"
	"github.com/dalemusser/larder/internal/app/system/htmlsanitize"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/app/system/txn"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// convertInput carries the pantry details a list item lacks. All fields
// are optional; the category defaults to the item's own.
type convertInput struct {
	CategoryID      *string  `json:"category_id"`
	Quantity        *float64 `json:"quantity"`
	Unit            string   `json:"unit"`
	ExpiryDate      string   `json:"expiry_date"`
	StorageLocation string   `json:"storage_location"`
	Notes           string   `json:"notes"`
}

// HandleConvert handles POST /api/list-items/{iid}/convert. It creates a
// food item in the list's group from the list item, then removes the list
// item. An empty body is allowed.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	var in convertInput
	if r.ContentLength != 0 {
		if err := httperr.DecodeJSON(r, &in); err != nil {
			httperr.Respond(w, h.Log, "convert item", err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	it, l, uid, err := h.loadItem(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "convert item", err)
		return
	}

	food := models.FoodItem{
		GroupID:         l.GroupID,
		Name:            it.Name,
		CategoryID:      it.CategoryID,
		Quantity:        1,
		Unit:            in.Unit,
		StorageLocation: models.StorageLocation(in.StorageLocation),
		Notes:           htmlsanitize.PlainText(in.Notes),
		CreatedBy:       uid,
	}
	// Zero means unset; the pantry row keeps a count of one.
	if in.Quantity != nil && *in.Quantity != 0 {
		food.Quantity = *in.Quantity
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			food.CategoryID = nil
		} else {
			cid, err := categoryID(ctx, h.DB, *in.CategoryID)
			if err != nil {
				httperr.Respond(w, h.Log, "convert item", err)
				return
			}
			food.CategoryID = &cid
		}
	}
	if in.ExpiryDate != "" {
		d, err := expiry.ParseDate(in.ExpiryDate)
		if err != nil {
			httperr.Write(w, http.StatusBadRequest, "expiry_date must be YYYY-MM-DD")
			return
		}
		food.ExpiryDate = &d
	}

	foods := fooditemstore.New(h.DB)
	var created models.FoodItem
	err = txn.Run(ctx, h.Client, h.Log, func(ctx context.Context) error {
		var err error
		created, err = foods.Create(ctx, food)
		if err != nil {
			return err
		}
		n, err := itemstore.New(h.DB).Delete(ctx, it.ID)
		if err != nil {
			return err
		}
		if n == 0 {
			return errItemNotFound
		}
		return nil
	})
	switch {
	case errors.Is(err, fooditemstore.ErrNameRequired),
		errors.Is(err, fooditemstore.ErrNegativeQuantity),
		errors.Is(err, fooditemstore.ErrBadLocation):
		httperr.Write(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		httperr.Respond(w, h.Log, "convert item", err)
		return
	}

	full, err := foods.Get(ctx, created.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		full = models.FoodItemWithCategory{FoodItem: created}
	} else if err != nil {
		httperr.Respond(w, h.Log, "convert item: reload", err)
		return
	}

	h.publishItem(ctx, realtime.Delete, it.ListID, nil, it.ID)
	h.publish(ctx, realtime.Insert, realtime.FoodItemsTopic(l.GroupID), realtime.TableFoodItems, full, primitive.NilObjectID)
	h.Log.Info("list item converted",
		zap.String("item_id", it.ID.Hex()),
		zap.String("food_item_id", created.ID.Hex()))
	httperr.JSON(w, http.StatusCreated, full)
}
