// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageSize is the default number of rows returned by paged endpoints.
const PageSize = 50

// MaxPageSize caps a client-supplied ?limit=.
const MaxPageSize = 200

// ParseLimit reads ?limit=, falling back to PageSize when it is absent or
// not a positive integer, and clamping it to MaxPageSize.
func ParseLimit(r *http.Request) int {
	s := query.Get(r, "limit")
	if s == "" {
		return PageSize
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return PageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}

// Cursor is a position in a list sorted newest first on a time field, then
// on _id.
type Cursor struct {
	At time.Time
	ID primitive.ObjectID
}

// ParseBefore reads the ?before= keyset cursor. ok is false when the
// value is present but malformed.
func ParseBefore(r *http.Request) (cursor *Cursor, ok bool) {
	s := query.Get(r, "before")
	if s == "" {
		return nil, true
	}
	c, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return nil, false
	}
	at, err := time.Parse(time.RFC3339Nano, c.CI)
	if err != nil {
		return nil, false
	}
	return &Cursor{At: at, ID: c.ID}, true
}

// EncodeBefore returns the ?before= value that continues after the row
// stamped at with id.
func EncodeBefore(at time.Time, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(at.UTC().Format(time.RFC3339Nano), id)
}

// OlderThan returns the keyset window of rows after c in (field desc,
// _id desc) order. A nil cursor selects everything.
func (c *Cursor) OlderThan(field string) bson.M {
	if c == nil {
		return bson.M{}
	}
	return bson.M{"$or": []bson.M{
		{field: bson.M{"$lt": c.At}},
		{field: c.At, "_id": bson.M{"$lt": c.ID}},
	}}
}

// LimitPlusOne returns limit+1 as int64 for look-ahead pagination
// (fetch one extra document to detect a next page).
func LimitPlusOne(limit int) int64 { return int64(limit + 1) }

// TrimPage trims rows fetched with LimitPlusOne back to limit and reports
// whether a further page exists.
func TrimPage[T any](rows *[]T, limit int) (hasNext bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}
