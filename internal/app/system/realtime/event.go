// internal/app/system/realtime/event.go
package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EventType is the kind of row change.
type EventType string

const (
	Insert EventType = "INSERT"
	Update EventType = "UPDATE"
	Delete EventType = "DELETE"
)

// Tables that publish change events.
const (
	TableFoodItems         = "food_items"
	TableShoppingLists     = "shopping_lists"
	TableShoppingListItems = "shopping_list_items"
)

// Event is one row change on a topic. New carries the row after the change
// (INSERT, UPDATE); Old carries at least {"id": ...} for UPDATE and DELETE.
type Event struct {
	ID    string          `json:"id"`
	Type  EventType       `json:"eventType"`
	Topic string          `json:"topic"`
	Table string          `json:"table"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
	At    time.Time       `json:"commit_timestamp"`
}

// oldRef is the minimal old-row payload.
type oldRef struct {
	ID primitive.ObjectID `json:"id"`
}

// NewEvent builds an event. newRow may be nil for DELETE; oldID may be
// NilObjectID for INSERT.
func NewEvent(typ EventType, topic, table string, newRow any, oldID primitive.ObjectID) (Event, error) {
	ev := Event{
		ID:    uuid.NewString(),
		Type:  typ,
		Topic: topic,
		Table: table,
		At:    time.Now().UTC(),
	}
	if newRow != nil {
		b, err := json.Marshal(newRow)
		if err != nil {
			return Event{}, fmt.Errorf("marshal new row: %w", err)
		}
		ev.New = b
	}
	if !oldID.IsZero() {
		b, err := json.Marshal(oldRef{ID: oldID})
		if err != nil {
			return Event{}, fmt.Errorf("marshal old row: %w", err)
		}
		ev.Old = b
	}
	return ev, nil
}

// OldID returns the id carried in Old, if any.
func (e Event) OldID() (primitive.ObjectID, bool) {
	if len(e.Old) == 0 {
		return primitive.NilObjectID, false
	}
	var ref oldRef
	if err := json.Unmarshal(e.Old, &ref); err != nil || ref.ID.IsZero() {
		return primitive.NilObjectID, false
	}
	return ref.ID, true
}

/*─────────────────────────────────────────────────────────────────────────────*
| Topics                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// FoodItemsTopic is the topic for food item changes in a group.
func FoodItemsTopic(groupID primitive.ObjectID) string {
	return TableFoodItems + ":" + groupID.Hex()
}

// ListsTopic is the topic for shopping list changes in a group.
func ListsTopic(groupID primitive.ObjectID) string {
	return TableShoppingLists + ":" + groupID.Hex()
}

// ListItemsTopic is the topic for item changes on one shopping list.
func ListItemsTopic(listID primitive.ObjectID) string {
	return TableShoppingListItems + ":" + listID.Hex()
}

// ParseTopic splits "<table>:<hex id>" and validates both halves.
func ParseTopic(topic string) (table string, id primitive.ObjectID, err error) {
	table, hex, ok := strings.Cut(topic, ":")
	if !ok {
		return "", primitive.NilObjectID, fmt.Errorf("topic %q: missing ':'", topic)
	}
	switch table {
	case TableFoodItems, TableShoppingLists, TableShoppingListItems:
	default:
		return "", primitive.NilObjectID, fmt.Errorf("topic %q: unknown table", topic)
	}
	id, err = primitive.ObjectIDFromHex(hex)
	if err != nil {
		return "", primitive.NilObjectID, fmt.Errorf("topic %q: bad id", topic)
	}
	return table, id, nil
}
