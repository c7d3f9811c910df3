// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called from EnsureSchema at startup. Each collection's set is
reconciled independently and problems are aggregated so startup fails with
the full picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, set := range indexSets() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func idx(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func uniq(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
}

// ttl expires documents once the date in field has passed.
func ttl(name, field string) mongo.IndexModel {
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName(name),
	}
}

func indexSets() []collectionIndexes {
	return []collectionIndexes{
		{"users", []mongo.IndexModel{
			uniq("uniq_users_email", bson.D{{Key: "email", Value: 1}}),
		}},
		{"group_members", []mongo.IndexModel{
			// one membership per (group, user); role changes update the doc
			uniq("uniq_gm_group_user", bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}}),
			idx("idx_gm_user_joined", bson.D{{Key: "user_id", Value: 1}, {Key: "joined_at", Value: -1}}),
			idx("idx_gm_group_role", bson.D{{Key: "group_id", Value: 1}, {Key: "role", Value: 1}}),
		}},
		{"categories", []mongo.IndexModel{
			idx("idx_categories_order_name", bson.D{{Key: "display_order", Value: 1}, {Key: "name", Value: 1}}),
		}},
		{"food_items", []mongo.IndexModel{
			idx("idx_food_group_expiry", bson.D{{Key: "group_id", Value: 1}, {Key: "expiry_date", Value: 1}}),
			idx("idx_food_group_location", bson.D{{Key: "group_id", Value: 1}, {Key: "storage_location", Value: 1}}),
			idx("idx_food_group_category", bson.D{{Key: "group_id", Value: 1}, {Key: "category_id", Value: 1}}),
		}},
		{"shopping_lists", []mongo.IndexModel{
			idx("idx_lists_group_active_created", bson.D{
				{Key: "group_id", Value: 1},
				{Key: "is_active", Value: 1},
				{Key: "created_at", Value: -1},
			}),
		}},
		{"shopping_list_items", []mongo.IndexModel{
			idx("idx_items_list_purchased_order", bson.D{
				{Key: "list_id", Value: 1},
				{Key: "is_purchased", Value: 1},
				{Key: "sort_order", Value: 1},
			}),
		}},
		{"notification_settings", []mongo.IndexModel{
			// group_id null is the user's global row
			uniq("uniq_ns_user_group", bson.D{{Key: "user_id", Value: 1}, {Key: "group_id", Value: 1}}),
			idx("idx_ns_time", bson.D{{Key: "notification_time", Value: 1}}),
			idx("idx_ns_group", bson.D{{Key: "group_id", Value: 1}}),
		}},
		{"push_subscriptions", []mongo.IndexModel{
			uniq("uniq_push_user_endpoint", bson.D{{Key: "user_id", Value: 1}, {Key: "endpoint", Value: 1}}),
		}},
		{"password_resets", []mongo.IndexModel{
			uniq("uniq_pwreset_token", bson.D{{Key: "token_hash", Value: 1}}),
			uniq("uniq_pwreset_user", bson.D{{Key: "user_id", Value: 1}}),
			ttl("ttl_pwreset_expires", "expires_at"),
		}},
		{"oauth_states", []mongo.IndexModel{
			uniq("uniq_oauth_state", bson.D{{Key: "state", Value: 1}}),
			ttl("ttl_oauth_expires", "expires_at"),
		}},
		{"audit_events", []mongo.IndexModel{
			idx("idx_audit_group_ts", bson.D{{Key: "group_id", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}),
			idx("idx_audit_user_ts", bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}),
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name        string `bson:"name"`
	Key         bson.D `bson:"key"`
	Unique      *bool  `bson:"unique,omitempty"`
	ExpireAfter *int32 `bson:"expireAfterSeconds,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func sameBoolPtr(a, b *bool) bool {
	return (a != nil && *a) == (b != nil && *b)
}

func sameTTL(a, b *int32) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var ix existingIndex
		if err := cur.Decode(&ix); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(ix.Key)] = ix
	}
	return out, cur.Err()
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A missing collection has no indexes; anything else is fatal.
		var ce mongo.CommandError
		if !errors.As(err, &ce) || ce.Code != 26 {
			return err
		}
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		opts := m.Options
		name := *opts.Name
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if ex.Name == name && sameBoolPtr(opts.Unique, ex.Unique) && sameTTL(opts.ExpireAfterSeconds, ex.ExpireAfter) {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", name))
				continue
			}
			// Same keys under a different name or options: drop and recreate.
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", name, ex.Name, err))
				continue
			}
			zap.L().Info("dropped index for recreation",
				zap.String("collection", coll.Name()),
				zap.String("from", ex.Name),
				zap.String("to", name))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index (duplicates present on %s)", name, sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
			zap.L().Warn("index ensure failed",
				zap.String("collection", coll.Name()),
				zap.String("name", name),
				zap.String("keys", sig),
				zap.Error(err))
			continue
		}
		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
