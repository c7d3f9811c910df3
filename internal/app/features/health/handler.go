package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Pinger is a backend that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FeedCounter reports open change-feed subscriptions; an empty topic
// counts all of them.
type FeedCounter interface {
	Subscribers(topic string) int
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Broker Pinger      // nil when change events stay in-process
	Feeds  FeedCounter // optional
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. broker may be nil.
func NewHandler(client *mongo.Client, broker Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Broker: broker,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Realtime string `json:"realtime"`
	Clients  int    `json:"realtime_clients"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "realtime":"in-process", "realtime_clients":3 }
//
// On DB failure: 503 and
//
//	{ "status":"error", "message":"Database unavailable", "error":"…"}
//
// A Redis broker that stops answering degrades the status but keeps 200;
// events still reach clients on this instance.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
		Realtime: "in-process",
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		resp.Error = err.Error()
		_ = json.NewEncoder(w).Encode(resp)
		return
	}

	if h.Feeds != nil {
		resp.Clients = h.Feeds.Subscribers("")
	}
	if h.Broker != nil {
		resp.Realtime = "redis"
		if err := h.Broker.Ping(ctx); err != nil {
			h.Log.Warn("health-check: redis ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Realtime = "redis-unreachable"
			resp.Error = err.Error()
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
