// internal/app/features/realtime/handler.go
package realtime

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	liststore "github.com/dalemusser/larder/internal/app/store/shoppinglists"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/metrics"
	rt "github.com/dalemusser/larder/internal/app/system/realtime"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxClientFrame = 1024

	// DefaultRecheck is how often an open feed re-verifies membership.
	DefaultRecheck = 15 * time.Second
)

// Subscriber is the part of the hub the feed needs.
type Subscriber interface {
	Subscribe(topic string) *rt.Subscription
}

// Handler upgrades change-feed requests to WebSockets.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Hub      Subscriber
	Recheck  time.Duration
	upgrader websocket.Upgrader
}

// NewHandler creates the feed handler. Browsers may connect from the
// request's own host or from baseURL's origin.
func NewHandler(db *mongo.Database, hub Subscriber, baseURL string, logger *zap.Logger) *Handler {
	allowed := ""
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		allowed = strings.ToLower(u.Scheme + "://" + u.Host)
	}
	return &Handler{
		DB:      db,
		Log:     logger,
		Hub:     hub,
		Recheck: DefaultRecheck,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				if allowed != "" && strings.EqualFold(origin, allowed) {
					return true
				}
				u, err := url.Parse(origin)
				return err == nil && strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

// hello is the first frame on every connection.
type hello struct {
	Type     string `json:"type"`
	Topic    string `json:"topic"`
	ClientID string `json:"client_id"`
}

// ServeFeed handles GET /api/realtime?topic=<table>:<id>.
func (h *Handler) ServeFeed(w http.ResponseWriter, r *http.Request) {
	topic := query.Get(r, "topic")
	table, id, err := rt.ParseTopic(topic)
	if err != nil {
		httperr.Write(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	uid, groupID, err := h.authorize(ctx, r, table, id)
	cancel()
	if err != nil {
		httperr.Respond(w, h.Log, "realtime subscribe", err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	h.serveConn(r.Context(), conn, topic, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
		defer cancel()
		_, err := authz.RequireMember(ctx, membershipstore.New(h.DB), groupID, uid)
		return err
	})
}

// authorize checks the caller may watch the topic: membership of the group
// that owns the rows. It returns the caller and that group.
func (h *Handler) authorize(ctx context.Context, r *http.Request, table string, id primitive.ObjectID) (uid, groupID primitive.ObjectID, err error) {
	uid, err = authz.RequireUserID(r)
	if err != nil {
		return uid, groupID, err
	}
	groupID = id
	if table == rt.TableShoppingListItems {
		l, err := liststore.New(h.DB).Get(ctx, id)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return uid, groupID, httperr.New(http.StatusNotFound, "shopping list not found")
		}
		if err != nil {
			return uid, groupID, err
		}
		groupID = l.GroupID
	}
	_, err = authz.RequireMember(ctx, membershipstore.New(h.DB), groupID, uid)
	return uid, groupID, err
}

// serveConn pumps hub events to conn until either side goes away. stillAllowed
// runs every Recheck; the socket is closed once the caller loses access.
func (h *Handler) serveConn(ctx context.Context, conn *websocket.Conn, topic string, stillAllowed func(context.Context) error) {
	clientID := uuid.NewString()
	log := h.Log.With(zap.String("topic", topic), zap.String("client_id", clientID))

	sub := h.Hub.Subscribe(topic)
	metrics.RealtimeSubscribed(1)
	defer func() {
		sub.Close()
		metrics.RealtimeSubscribed(-1)
		conn.Close()
		log.Debug("realtime client disconnected")
	}()

	// The reader only services control frames; client data is discarded.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxClientFrame)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug("realtime read", zap.Error(err))
				}
				return
			}
		}
	}()

	if err := h.write(conn, hello{Type: "subscribed", Topic: topic, ClientID: clientID}); err != nil {
		return
	}
	log.Debug("realtime client connected")

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	every := h.Recheck
	if every <= 0 {
		every = DefaultRecheck
	}
	recheck := time.NewTicker(every)
	defer recheck.Stop()

	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if err := h.write(conn, ev); err != nil {
				log.Debug("realtime write", zap.Error(err))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-recheck.C:
			err := stillAllowed(ctx)
			if errors.Is(err, authz.ErrNotGroupMember) {
				log.Info("realtime access revoked")
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "membership revoked"),
					time.Now().Add(writeWait))
				return
			}
			if err != nil {
				log.Warn("realtime membership recheck", zap.Error(err))
			}
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
