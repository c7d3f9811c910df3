// internal/app/features/notifications/handler.go
package notifications

import (
	"context"

	"github.com/dalemusser/larder/internal/app/system/webpush"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Pusher is the part of webpush.Pusher the handlers use.
type Pusher interface {
	Enabled() bool
	PublicKey() string
	Send(ctx context.Context, sub models.PushSubscription, msg webpush.Message) error
}

// Handler serves notification settings and push subscriptions.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Push    Pusher
	BaseURL string
}

func NewHandler(db *mongo.Database, push Pusher, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger, Push: push, BaseURL: baseURL}
}
