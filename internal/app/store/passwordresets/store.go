// internal/app/store/passwordresets/store.go
package passwordreset

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/larder/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// TokenBytes is the random size of a reset token.
	TokenBytes = 32
	// DefaultExpiry is how long a reset link is valid.
	DefaultExpiry = time.Hour
)

// ErrNotFound is returned when a token is unknown, used or expired.
var ErrNotFound = errors.New("reset link is invalid or has expired")

// Reset is a pending password reset. Only the token hash is stored.
type Reset struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	TokenHash string             `bson:"token_hash"`
	ExpiresAt time.Time          `bson:"expires_at"` // TTL index field
	CreatedAt time.Time          `bson:"created_at"`
}

// Store manages password reset records.
type Store struct {
	c      *mongo.Collection
	expiry time.Duration
}

// New creates a Store. If expiry is 0 or negative, DefaultExpiry is used.
func New(db *mongo.Database, expiry time.Duration) *Store {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Store{c: db.Collection("password_resets"), expiry: expiry}
}

// Expiry returns how long reset links stay valid.
func (s *Store) Expiry() time.Duration {
	return s.expiry
}

// Create issues a new reset token for userID, replacing any earlier one,
// and returns the plain token for the email link.
func (s *Store) Create(ctx context.Context, userID primitive.ObjectID) (string, error) {
	token := auth.RandomToken(TokenBytes)
	if token == "" {
		return "", errors.New("generate reset token")
	}
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"token_hash": auth.HashToken(token),
				"expires_at": now.Add(s.expiry),
				"created_at": now,
			},
			"$setOnInsert": bson.M{"user_id": userID},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// Consume validates token, deletes it (one-time use) and returns the user id.
func (s *Store) Consume(ctx context.Context, token string) (primitive.ObjectID, error) {
	if token == "" {
		return primitive.NilObjectID, ErrNotFound
	}
	var r Reset
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"token_hash": auth.HashToken(token),
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, ErrNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return r.UserID, nil
}

// CleanupExpired removes expired records. This is a backup for when the TTL
// monitor is delayed.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
