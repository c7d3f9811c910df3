// internal/app/features/fooditems/input.go
package fooditems

import (
	"context"
	"errors"
	"net/http"
	"time"

	categorystore "github.com/dalemusser/larder/internal/app/store/categories"
	fooditemstore "github.com/dalemusser/larder/internal/app/store/fooditems"
	"github.com/dalemusser/larder/internal/app/system/expiry"
	"github.com/dalemusser/larder/internal/app/system/htmlsanitize"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// foodItemInput is the create and patch body. For patches an omitted field
// is unchanged and an empty string clears an optional field.
type foodItemInput struct {
	Name            *string  `json:"name"`
	CategoryID      *string  `json:"category_id"`
	Quantity        *float64 `json:"quantity"`
	Unit            *string  `json:"unit"`
	ExpiryDate      *string  `json:"expiry_date"` // YYYY-MM-DD
	StorageLocation *string  `json:"storage_location"`
	Barcode         *string  `json:"barcode"`
	Notes           *string  `json:"notes"`
}

var (
	errBadCategory = httperr.BadRequest("unknown category")
	errBadExpiry   = httperr.BadRequest("expiry_date must be YYYY-MM-DD")
)

// toPatch validates in and converts it to a store patch.
func (in foodItemInput) toPatch(ctx context.Context, db *mongo.Database) (fooditemstore.Patch, error) {
	var p fooditemstore.Patch

	if in.Name != nil {
		name := htmlsanitize.PlainText(*in.Name)
		p.Name = &name
	}
	p.Quantity = in.Quantity
	p.Unit = in.Unit
	p.Barcode = in.Barcode
	if in.Notes != nil {
		notes := htmlsanitize.PlainText(*in.Notes)
		p.Notes = &notes
	}

	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			p.ClearCategory = true
		} else {
			cid, err := parseCategory(ctx, db, *in.CategoryID)
			if err != nil {
				return p, err
			}
			p.CategoryID = &cid
		}
	}

	if in.ExpiryDate != nil {
		if *in.ExpiryDate == "" {
			p.ClearExpiry = true
		} else {
			d, err := expiry.ParseDate(*in.ExpiryDate)
			if err != nil {
				return p, errBadExpiry
			}
			p.ExpiryDate = &d
		}
	}

	if in.StorageLocation != nil {
		loc := models.StorageLocation(*in.StorageLocation)
		p.StorageLocation = &loc
	}
	return p, nil
}

// toItem builds a new item for groupID. Quantity defaults to 1.
func (in foodItemInput) toItem(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (models.FoodItem, error) {
	p, err := in.toPatch(ctx, db)
	if err != nil {
		return models.FoodItem{}, err
	}
	it := models.FoodItem{
		GroupID:    groupID,
		CategoryID: p.CategoryID,
		Quantity:   1,
		ExpiryDate: p.ExpiryDate,
		CreatedBy:  userID,
	}
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Quantity != nil {
		it.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		it.Unit = *p.Unit
	}
	if p.StorageLocation != nil {
		it.StorageLocation = *p.StorageLocation
	}
	if p.Barcode != nil {
		it.Barcode = *p.Barcode
	}
	if p.Notes != nil {
		it.Notes = *p.Notes
	}
	return it, nil
}

func parseCategory(ctx context.Context, db *mongo.Database, hex string) (primitive.ObjectID, error) {
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

// storeError maps validation errors from the store to 400s.
func storeError(err error) error {
	switch {
	case errors.Is(err, fooditemstore.ErrNameRequired),
		errors.Is(err, fooditemstore.ErrNegativeQuantity),
		errors.Is(err, fooditemstore.ErrBadLocation):
		return httperr.New(http.StatusBadRequest, err.Error())
	}
	return err
}

// dateOnly renders t in the wire date format. Used in log fields.
func dateOnly(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(expiry.DateLayout)
}
