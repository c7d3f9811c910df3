// internal/app/store/pushsubs/pushsubstore.go
package pushsubstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrIncomplete = errors.New("endpoint and keys are required")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("push_subscriptions")}
}

// Upsert saves a subscription keyed by (user_id, endpoint). Re-subscribing
// the same endpoint refreshes its keys.
func (s *Store) Upsert(ctx context.Context, sub models.PushSubscription) (models.PushSubscription, error) {
	sub.Endpoint = strings.TrimSpace(sub.Endpoint)
	if sub.Endpoint == "" || sub.P256dh == "" || sub.Auth == "" {
		return models.PushSubscription{}, ErrIncomplete
	}
	now := time.Now().UTC()
	upd := bson.M{
		"$set": bson.M{
			"p256dh":     sub.P256dh,
			"auth":       sub.Auth,
			"user_agent": sub.UserAgent,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	var out models.PushSubscription
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"user_id": sub.UserID, "endpoint": sub.Endpoint}, upd,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&out)
	if err != nil {
		return models.PushSubscription{}, err
	}
	return out, nil
}

// ListByUser returns a user's subscriptions, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []models.PushSubscription{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByEndpoint removes the user's subscription for endpoint.
func (s *Store) DeleteByEndpoint(ctx context.Context, userID primitive.ObjectID, endpoint string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"user_id": userID, "endpoint": strings.TrimSpace(endpoint)})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByID removes a subscription the push service reported as gone.
func (s *Store) DeleteByID(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
