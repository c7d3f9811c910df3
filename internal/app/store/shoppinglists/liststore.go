// internal/app/store/shoppinglists/liststore.go
package liststore

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

var ErrNameRequired = errors.New("list name is required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("shopping_lists")}
}

// Patch is a partial list update.
type Patch struct {
	Name     *string
	IsActive *bool
}

func (s *Store) Create(ctx context.Context, l models.ShoppingList) (models.ShoppingList, error) {
	l.Name = normalize.Name(l.Name)
	if l.Name == "" {
		return models.ShoppingList{}, ErrNameRequired
	}
	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	l.IsActive = true
	l.CreatedAt = now
	l.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.ShoppingList{}, err
	}
	return l, nil
}

// ListActive returns a group's active lists, newest first. With
// includeArchived, archived lists are returned as well.
func (s *Store) ListActive(ctx context.Context, groupID primitive.ObjectID, includeArchived bool) ([]models.ShoppingList, error) {
	filter := bson.M{"group_id": groupID}
	if !includeArchived {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.ShoppingList{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (models.ShoppingList, error) {
	var l models.ShoppingList
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return models.ShoppingList{}, err
	}
	return l, nil
}

// Update applies p and returns the updated list.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, p Patch) (models.ShoppingList, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if p.Name != nil {
		name := normalize.Name(*p.Name)
		if name == "" {
			return models.ShoppingList{}, ErrNameRequired
		}
		set["name"] = name
	}
	if p.IsActive != nil {
		set["is_active"] = *p.IsActive
	}
	var out models.ShoppingList
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.ShoppingList{}, err
	}
	return out, nil
}

// Archive marks a list inactive.
func (s *Store) Archive(ctx context.Context, id primitive.ObjectID) (models.ShoppingList, error) {
	inactive := false
	return s.Update(ctx, id, Patch{IsActive: &inactive})
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// IDsByGroup returns the ids of every list in a group, archived included.
func (s *Store) IDsByGroup(ctx context.Context, groupID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var ids []primitive.ObjectID
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

func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
