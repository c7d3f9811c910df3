// internal/app/store/fooditems/fooditemstore.go
package fooditemstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/larder/internal/app/system/normalize"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNameRequired     = errors.New("name is required")
	ErrNegativeQuantity = errors.New("quantity must not be negative")
	ErrBadLocation      = errors.New("invalid storage location")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("food_items")}
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Location   models.StorageLocation
	CategoryID *primitive.ObjectID
}

// Patch is a partial update. Nil fields are left unchanged; the Clear flags
// unset optional fields.
type Patch struct {
	Name            *string
	CategoryID      *primitive.ObjectID
	ClearCategory   bool
	Quantity        *float64
	Unit            *string
	ExpiryDate      *time.Time
	ClearExpiry     bool
	StorageLocation *models.StorageLocation
	Barcode         *string
	Notes           *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.CategoryID == nil && !p.ClearCategory &&
		p.Quantity == nil && p.Unit == nil && p.ExpiryDate == nil && !p.ClearExpiry &&
		p.StorageLocation == nil && p.Barcode == nil && p.Notes == nil
}

// List returns a group's items joined with their category, ordered by expiry
// date ascending with undated items last.
func (s *Store) List(ctx context.Context, groupID primitive.ObjectID, f Filter) ([]models.FoodItemWithCategory, error) {
	match := bson.M{"group_id": groupID}
	if f.Location != "" {
		match["storage_location"] = f.Location
	}
	if f.CategoryID != nil {
		match["category_id"] = *f.CategoryID
	}
	return s.aggregate(ctx, match)
}

// ListWithExpiry returns dated items across groups, soonest first.
func (s *Store) ListWithExpiry(ctx context.Context, groupIDs []primitive.ObjectID) ([]models.FoodItemWithCategory, error) {
	if len(groupIDs) == 0 {
		return []models.FoodItemWithCategory{}, nil
	}
	return s.aggregate(ctx, bson.M{
		"group_id":    bson.M{"$in": groupIDs},
		"expiry_date": bson.M{"$ne": nil},
	})
}

// Get returns one item with its category.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.FoodItemWithCategory, error) {
	items, err := s.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return models.FoodItemWithCategory{}, err
	}
	if len(items) == 0 {
		return models.FoodItemWithCategory{}, mongo.ErrNoDocuments
	}
	return items[0], nil
}

func (s *Store) aggregate(ctx context.Context, match bson.M) ([]models.FoodItemWithCategory, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$addFields", Value: bson.M{
			"_undated": bson.M{"$cond": bson.A{bson.M{"$ifNull": bson.A{"$expiry_date", false}}, 0, 1}},
		}}},
		{{Key: "$sort", Value: bson.D{
			{Key: "_undated", Value: 1},
			{Key: "expiry_date", Value: 1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: 1},
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "categories",
			"localField":   "category_id",
			"foreignField": "_id",
			"as":           "category",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$category", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{"_undated": 0}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.FoodItemWithCategory{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create validates and inserts an item. A zero quantity is stored as-is;
// callers apply the default of 1 when the field was omitted.
func (s *Store) Create(ctx context.Context, it models.FoodItem) (models.FoodItem, error) {
	it.Name = normalize.Name(it.Name)
	it.Unit = normalize.Unit(it.Unit)
	it.Barcode = normalize.Barcode(it.Barcode)
	if it.Name == "" {
		return models.FoodItem{}, ErrNameRequired
	}
	if it.Quantity < 0 {
		return models.FoodItem{}, ErrNegativeQuantity
	}
	if !it.StorageLocation.IsValid() {
		return models.FoodItem{}, ErrBadLocation
	}
	now := time.Now().UTC()
	it.ID = primitive.NewObjectID()
	it.CreatedAt = now
	it.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, it); err != nil {
		return models.FoodItem{}, err
	}
	return it, nil
}

// Update applies p and returns the updated item.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (models.FoodItem, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}

	if p.Name != nil {
		name := normalize.Name(*p.Name)
		if name == "" {
			return models.FoodItem{}, ErrNameRequired
		}
		set["name"] = name
	}
	if p.Quantity != nil {
		if *p.Quantity < 0 {
			return models.FoodItem{}, ErrNegativeQuantity
		}
		set["quantity"] = *p.Quantity
	}
	if p.StorageLocation != nil {
		if !p.StorageLocation.IsValid() {
			return models.FoodItem{}, ErrBadLocation
		}
		if *p.StorageLocation == "" {
			unset["storage_location"] = ""
		} else {
			set["storage_location"] = *p.StorageLocation
		}
	}
	setOrUnset(set, unset, "unit", p.Unit, normalize.Unit)
	setOrUnset(set, unset, "barcode", p.Barcode, normalize.Barcode)
	setOrUnset(set, unset, "notes", p.Notes, nil)

	switch {
	case p.ClearCategory:
		unset["category_id"] = ""
	case p.CategoryID != nil:
		set["category_id"] = *p.CategoryID
	}
	switch {
	case p.ClearExpiry:
		unset["expiry_date"] = ""
	case p.ExpiryDate != nil:
		set["expiry_date"] = *p.ExpiryDate
	}

	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}
	var out models.FoodItem
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.FoodItem{}, err
	}
	return out, nil
}

func setOrUnset(set, unset bson.M, field string, v *string, clean func(string) string) {
	if v == nil {
		return
	}
	val := *v
	if clean != nil {
		val = clean(val)
	}
	if val == "" {
		unset[field] = ""
		return
	}
	set[field] = val
}

// Delete removes an item. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByGroup removes every item belonging to a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
