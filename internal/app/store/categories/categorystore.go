// internal/app/store/categories/categorystore.go
package categorystore

import (
	"context"
	"time"

	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("categories")}
}

// List returns every category ordered by display_order, then name.
func (s *Store) List(ctx context.Context) ([]models.Category, error) {
	opts := options.Find().SetSort(bson.D{{Key: "display_order", Value: 1}, {Key: "name", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.Category{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Category, error) {
	var c models.Category
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// Exists reports whether a category with id exists.
func (s *Store) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts a category.
func (s *Store) Create(ctx context.Context, c models.Category) (models.Category, error) {
	c.ID = primitive.NewObjectID()
	c.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.Category{}, err
	}
	return c, nil
}

// SeedDefaults inserts models.DefaultCategories when the collection is
// empty. It returns the number of categories inserted.
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	n, err := s.c.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	docs := make([]interface{}, 0, len(models.DefaultCategories))
	for _, c := range models.DefaultCategories {
		c.ID = primitive.NewObjectID()
		c.CreatedAt = now
		docs = append(docs, c)
	}
	if _, err := s.c.InsertMany(ctx, docs); err != nil {
		return 0, err
	}
	return len(docs), nil
}
