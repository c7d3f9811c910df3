// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/larder/internal/app/system/realtime"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Broker is nil when redis_url is blank.
	Broker *realtime.RedisBroker
	Hub    *realtime.Hub

	// svc is filled by Startup and read by BuildHandler and Shutdown.
	svc *services
}
