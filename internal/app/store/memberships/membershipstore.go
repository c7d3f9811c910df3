// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/larder/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_members")}
}

var (
	errBadRole = errors.New(`role must be "owner" or "member"`)

	ErrDuplicateMembership = errors.New("user is already a member of this group")
	ErrNotMember           = errors.New("user is not a member of this group")
	ErrLastOwner           = errors.New("the last owner cannot leave the group")
)

// Add creates a membership.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string) (models.GroupMember, error) {
	if !models.IsValidRole(role) {
		return models.GroupMember{}, errBadRole
	}
	m := models.GroupMember{
		ID:       primitive.NewObjectID(),
		GroupID:  groupID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GroupMember{}, ErrDuplicateMembership
		}
		return models.GroupMember{}, err
	}
	return m, nil
}

// Get returns the membership of userID in groupID, or ErrNotMember.
func (s *Store) Get(ctx context.Context, groupID, userID primitive.ObjectID) (models.GroupMember, error) {
	var m models.GroupMember
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GroupMember{}, ErrNotMember
	}
	return m, err
}

// ListByUser returns the user's memberships, most recently joined first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.GroupMember, error) {
	opts := options.Find().SetSort(bson.D{{Key: "joined_at", Value: -1}, {Key: "_id", Value: -1}})
	return s.find(ctx, bson.M{"user_id": userID}, opts)
}

// GroupIDsForUser returns the ids of every group the user belongs to.
func (s *Store) GroupIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ms, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.GroupID)
	}
	return ids, nil
}

// ListMembers returns a group's memberships joined with user email and name,
// oldest first.
func (s *Store) ListMembers(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMemberWithUser, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"group_id": groupID}}},
		{{Key: "$sort", Value: bson.D{{Key: "joined_at", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "user_id",
			"foreignField": "_id",
			"as":           "user",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$user", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$addFields", Value: bson.M{
			"email":     "$user.email",
			"full_name": "$user.full_name",
		}}},
		{{Key: "$project", Value: bson.M{"user": 0}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.GroupMemberWithUser
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes a membership. Removing the only owner returns ErrLastOwner.
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) error {
	m, err := s.Get(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if m.Role == models.RoleOwner {
		n, err := s.c.CountDocuments(ctx, bson.M{"group_id": groupID, "role": models.RoleOwner})
		if err != nil {
			return err
		}
		if n <= 1 {
			return ErrLastOwner
		}
	}
	_, err = s.c.DeleteOne(ctx, bson.M{"_id": m.ID})
	return err
}

// DeleteByGroup removes every membership of a group.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.GroupMember, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.GroupMember
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
