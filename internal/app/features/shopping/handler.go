// internal/app/features/shopping/handler.go
package shopping

import (
	"context"

	"github.com/dalemusser/larder/internal/app/system/realtime"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves shopping lists and their items.
type Handler struct {
	DB     *mongo.Database
	Client *mongo.Client
	Log    *zap.Logger
	Events realtime.Publisher // nil disables change events
}

func NewHandler(db *mongo.Database, client *mongo.Client, events realtime.Publisher, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Client: client, Log: logger, Events: events}
}

func (h *Handler) publish(ctx context.Context, typ realtime.EventType, topic, table string, row any, oldID primitive.ObjectID) {
	if h.Events == nil {
		return
	}
	ev, err := realtime.NewEvent(typ, topic, table, row, oldID)
	if err != nil {
		h.Log.Warn("build change event", zap.Error(err), zap.String("topic", topic))
		return
	}
	if err := h.Events.Publish(ctx, ev); err != nil {
		h.Log.Warn("publish change event", zap.Error(err), zap.String("topic", topic))
	}
}

func (h *Handler) publishList(ctx context.Context, typ realtime.EventType, groupID primitive.ObjectID, row any, oldID primitive.ObjectID) {
	h.publish(ctx, typ, realtime.ListsTopic(groupID), realtime.TableShoppingLists, row, oldID)
}

func (h *Handler) publishItem(ctx context.Context, typ realtime.EventType, listID primitive.ObjectID, row any, oldID primitive.ObjectID) {
	h.publish(ctx, typ, realtime.ListItemsTopic(listID), realtime.TableShoppingListItems, row, oldID)
}
