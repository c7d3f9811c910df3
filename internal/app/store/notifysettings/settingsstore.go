// internal/app/store/notifysettings/settingsstore.go
package settingsstore

import (
	"context"
	"errors"
	"regexp"
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
	return &Store{c: db.Collection("notification_settings")}
}

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

// scope matches the row for userID in groupID, or the global row when
// groupID is nil.
func scope(userID primitive.ObjectID, groupID *primitive.ObjectID) bson.M {
	if groupID == nil {
		return bson.M{"user_id": userID, "group_id": nil}
	}
	return bson.M{"user_id": userID, "group_id": *groupID}
}

// Get returns the saved settings for the scope. When none are saved it
// returns the defaults and found=false.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID, groupID *primitive.ObjectID) (models.NotificationSettings, bool, error) {
	var ns models.NotificationSettings
	err := s.c.FindOne(ctx, scope(userID, groupID)).Decode(&ns)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultNotificationSettings(userID, groupID), false, nil
	}
	if err != nil {
		return models.NotificationSettings{}, false, err
	}
	return ns, true, nil
}

// Upsert saves ns for (ns.UserID, ns.GroupID) and returns the stored row.
func (s *Store) Upsert(ctx context.Context, ns models.NotificationSettings) (models.NotificationSettings, error) {
	now := time.Now().UTC()
	days := ns.DaysBeforeExpiry
	if days == nil {
		days = []int{}
	}
	upd := bson.M{
		"$set": bson.M{
			"days_before_expiry": days,
			"push_enabled":       ns.PushEnabled,
			"email_enabled":      ns.EmailEnabled,
			"notification_time":  ns.NotificationTime,
			"notify_expired":     ns.NotifyExpired,
			"notify_warning":     ns.NotifyWarning,
			"notify_caution":     ns.NotifyCaution,
			"updated_at":         now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"user_id":    ns.UserID,
			"group_id":   ns.GroupID,
			"created_at": now,
		},
	}
	var out models.NotificationSettings
	err := s.c.FindOneAndUpdate(ctx, scope(ns.UserID, ns.GroupID), upd,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)).Decode(&out)
	if err != nil {
		return models.NotificationSettings{}, err
	}
	return out, nil
}

// ListDue returns rows whose notification_time falls in minute (HH:MM) and
// that have not been notified on day (YYYY-MM-DD).
func (s *Store) ListDue(ctx context.Context, minute, day string) ([]models.NotificationSettings, error) {
	if !hhmm.MatchString(minute) {
		return nil, errors.New("minute must be HH:MM")
	}
	cur, err := s.c.Find(ctx, bson.M{
		"notification_time": bson.M{"$regex": "^" + minute},
		"last_notified_on":  bson.M{"$ne": day},
		"$or": bson.A{
			bson.M{"push_enabled": true},
			bson.M{"email_enabled": true},
		},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.NotificationSettings
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MarkNotified claims the row for day. It returns false when another run
// already claimed it.
func (s *Store) MarkNotified(ctx context.Context, id primitive.ObjectID, day string) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "last_notified_on": bson.M{"$ne": day}},
		bson.M{"$set": bson.M{"last_notified_on": day}})
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// DeleteByGroup removes the group-scoped settings of every user.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteForMember removes one user's settings row for a group.
func (s *Store) DeleteForMember(ctx context.Context, groupID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
