// internal/app/features/groups/handler.go
package groups

import (
	"github.com/dalemusser/larder/internal/app/system/auditlog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
// Client is needed to run the create and delete cascades in a
// transaction.
type Handler struct {
	DB     *mongo.Database
	Client *mongo.Client
	Log    *zap.Logger
	Audit  *auditlog.Logger // nil disables audit events
}

// NewHandler constructs a new groups Handler. It is typically called
// from the bootstrap BuildHandler function, where the application's
// DB and logger are already initialized.
func NewHandler(db *mongo.Database, client *mongo.Client, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Client: client,
		Log:    logger,
	}
}
