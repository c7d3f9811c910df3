// internal/app/store/listitems/itemstore.go
package itemstore

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

var ErrNameRequired = errors.New("item name is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("shopping_list_items")}
}

// Patch is a partial item update.
type Patch struct {
	Name          *string
	Quantity      *string
	CategoryID    *primitive.ObjectID
	ClearCategory bool
	SortOrder     *int
}

var listSort = bson.D{
	{Key: "is_purchased", Value: 1},
	{Key: "sort_order", Value: 1},
	{Key: "created_at", Value: -1},
	{Key: "_id", Value: -1},
}

// List returns a list's items with their category: unpurchased first, then
// by sort_order, newest first within equal order.
func (s *Store) List(ctx context.Context, listID primitive.ObjectID) ([]models.ShoppingListItem, error) {
	return s.aggregate(ctx, bson.M{"list_id": listID})
}

// Get returns one item with its category.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.ShoppingListItem, error) {
	items, err := s.aggregate(ctx, bson.M{"_id": id})
	if err != nil {
		return models.ShoppingListItem{}, err
	}
	if len(items) == 0 {
		return models.ShoppingListItem{}, mongo.ErrNoDocuments
	}
	return items[0], nil
}

func (s *Store) aggregate(ctx context.Context, match bson.M) ([]models.ShoppingListItem, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: listSort}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "categories",
			"localField":   "category_id",
			"foreignField": "_id",
			"as":           "category",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$category", "preserveNullAndEmptyArrays": true}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ShoppingListItem{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MaxSortOrder returns the highest sort_order on a list, or -1 when empty.
func (s *Store) MaxSortOrder(ctx context.Context, listID primitive.ObjectID) (int, error) {
	var row struct {
		SortOrder int `bson:"sort_order"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "sort_order", Value: -1}}).
		SetProjection(bson.M{"sort_order": 1})
	err := s.c.FindOne(ctx, bson.M{"list_id": listID}, opts).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return row.SortOrder, nil
}

// Create appends an item to the end of its list.
func (s *Store) Create(ctx context.Context, it models.ShoppingListItem) (models.ShoppingListItem, error) {
	it.Name = normalize.Name(it.Name)
	it.Quantity = normalize.Name(it.Quantity)
	if it.Name == "" {
		return models.ShoppingListItem{}, ErrNameRequired
	}
	last, err := s.MaxSortOrder(ctx, it.ListID)
	if err != nil {
		return models.ShoppingListItem{}, err
	}
	now := time.Now().UTC()
	it.ID = primitive.NewObjectID()
	it.SortOrder = last + 1
	it.IsPurchased = false
	it.PurchasedAt = nil
	it.PurchasedBy = nil
	it.Category = nil
	it.CreatedAt = now
	it.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, it); err != nil {
		return models.ShoppingListItem{}, err
	}
	return it, nil
}

// Update applies p and returns the updated item.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (models.ShoppingListItem, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if p.Name != nil {
		name := normalize.Name(*p.Name)
		if name == "" {
			return models.ShoppingListItem{}, ErrNameRequired
		}
		set["name"] = name
	}
	if p.Quantity != nil {
		if q := normalize.Name(*p.Quantity); q == "" {
			unset["quantity"] = ""
		} else {
			set["quantity"] = q
		}
	}
	switch {
	case p.ClearCategory:
		unset["category_id"] = ""
	case p.CategoryID != nil:
		set["category_id"] = *p.CategoryID
	}
	if p.SortOrder != nil {
		set["sort_order"] = *p.SortOrder
	}
	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}
	return s.updateOne(ctx, id, upd)
}

// SetPurchased marks an item purchased by userID, or clears the mark.
func (s *Store) SetPurchased(ctx context.Context, id primitive.ObjectID, purchased bool, userID primitive.ObjectID) (models.ShoppingListItem, error) {
	now := time.Now().UTC()
	var upd bson.M
	if purchased {
		upd = bson.M{"$set": bson.M{
			"is_purchased": true,
			"purchased_at": now,
			"purchased_by": userID,
			"updated_at":   now,
		}}
	} else {
		upd = bson.M{
			"$set":   bson.M{"is_purchased": false, "updated_at": now},
			"$unset": bson.M{"purchased_at": "", "purchased_by": ""},
		}
	}
	return s.updateOne(ctx, id, upd)
}

func (s *Store) updateOne(ctx context.Context, id primitive.ObjectID, upd bson.M) (models.ShoppingListItem, error) {
	var out models.ShoppingListItem
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.ShoppingListItem{}, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Reorder sets each item's sort_order to its index in ids. Ids that do not
// belong to listID are ignored.
func (s *Store) Reorder(ctx context.Context, listID primitive.ObjectID, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now().UTC()
	writes := make([]mongo.WriteModel, 0, len(ids))
	for i, id := range ids {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id, "list_id": listID}).
			SetUpdate(bson.M{"$set": bson.M{"sort_order": i, "updated_at": now}}))
	}
	_, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

// ClearPurchased deletes a list's purchased items and returns their ids.
func (s *Store) ClearPurchased(ctx context.Context, listID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids, err := s.ids(ctx, bson.M{"list_id": listID, "is_purchased": true})
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	return s.DeletePurchased(ctx, ids)
}

// DeletePurchased deletes those of ids that are still purchased and returns
// the ones it removed. Items unmarked since they were read are kept.
func (s *Store) DeletePurchased(ctx context.Context, ids []primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{"_id": bson.M{"$in": ids}, "is_purchased": true}
	res, err := s.c.DeleteMany(ctx, filter)
	if err != nil {
		return nil, err
	}
	if int(res.DeletedCount) == len(ids) {
		return ids, nil
	}
	kept, err := s.ids(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	still := make(map[primitive.ObjectID]bool, len(kept))
	for _, id := range kept {
		still[id] = true
	}
	deleted := make([]primitive.ObjectID, 0, int(res.DeletedCount))
	for _, id := range ids {
		if !still[id] {
			deleted = append(deleted, id)
		}
	}
	return deleted, nil
}

// MarkAllPurchased marks every unpurchased item on a list purchased by
// userID and returns the updated items.
func (s *Store) MarkAllPurchased(ctx context.Context, listID, userID primitive.ObjectID) ([]models.ShoppingListItem, error) {
	ids, err := s.ids(ctx, bson.M{"list_id": listID, "is_purchased": false})
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.ShoppingListItem{}, nil
	}
	now := time.Now().UTC()
	_, err = s.c.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, bson.M{"$set": bson.M{
		"is_purchased": true,
		"purchased_at": now,
		"purchased_by": userID,
		"updated_at":   now,
	}})
	if err != nil {
		return nil, err
	}
	return s.aggregate(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

// DeleteByLists removes every item on the given lists.
func (s *Store) DeleteByLists(ctx context.Context, listIDs []primitive.ObjectID) (int64, error) {
	if len(listIDs) == 0 {
		return 0, nil
	}
	res, err := s.c.DeleteMany(ctx, bson.M{"list_id": bson.M{"$in": listIDs}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) ids(ctx context.Context, filter bson.M) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	ids := []primitive.ObjectID{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}
