// internal/app/features/fooditems/handler.go
package fooditems

import (
	"context"
	"time"

	"github.com/dalemusser/larder/internal/app/system/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves a group's food inventory.
type Handler struct {
	DB     *mongo.Database
	Log    *zap.Logger
	Events realtime.Publisher // nil disables change events

	// Loc is the zone whose calendar decides days until expiry.
	Loc *time.Location
	now func() time.Time
}

// NewHandler constructs the food items handler.
func NewHandler(db *mongo.Database, events realtime.Publisher, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		DB:     db,
		Log:    logger,
		Events: events,
		Loc:    loc,
		now:    time.Now,
	}
}

func (h *Handler) today() time.Time {
	return h.now().In(h.Loc)
}

// publish emits a change on the group's food items topic. Failures are
// logged; the write has already succeeded.
func (h *Handler) publish(ctx context.Context, typ realtime.EventType, groupID primitive.ObjectID, row any, oldID primitive.ObjectID) {
	if h.Events == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, realtime.FoodItemsTopic(groupID), realtime.TableFoodItems, row, oldID)
	if err != nil {
		h.Log.Warn("build food item event", zap.Error(err))
		return
	}
	if err := h.Events.Publish(ctx, ev); err != nil {
		h.Log.Warn("publish food item event", zap.Error(err), zap.String("topic", ev.Topic))
	}
}
