// internal/app/features/notifications/subscriptions.go
package notifications

import (
	"context"
	"errors"
	"net/http"

	pushsubstore "github.com/dalemusser/larder/internal/app/store/pushsubs"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/app/system/webpush"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// subscriptionInput mirrors the browser's PushSubscription.toJSON().
type subscriptionInput struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

const maxUserAgent = 512

// ServeSubscriptions handles GET /api/notifications/subscriptions.
func (h *Handler) ServeSubscriptions(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "list subscriptions", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	subs, err := pushsubstore.New(h.DB).ListByUser(ctx, uid)
	if err != nil {
		httperr.Respond(w, h.Log, "list subscriptions", err)
		return
	}
	httperr.JSON(w, http.StatusOK, subs)
}

// HandleSubscribe handles POST /api/notifications/subscriptions.
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "save subscription", err)
		return
	}
	var in subscriptionInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "save subscription", err)
		return
	}
	ua := r.UserAgent()
	if len(ua) > maxUserAgent {
		ua = ua[:maxUserAgent]
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, err := pushsubstore.New(h.DB).Upsert(ctx, models.PushSubscription{
		UserID:    uid,
		Endpoint:  in.Endpoint,
		P256dh:    in.Keys.P256dh,
		Auth:      in.Keys.Auth,
		UserAgent: ua,
	})
	if errors.Is(err, pushsubstore.ErrIncomplete) {
		httperr.Write(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "save subscription", err)
		return
	}
	httperr.JSON(w, http.StatusCreated, sub)
}

// HandleUnsubscribe handles DELETE /api/notifications/subscriptions. The
// endpoint comes from the JSON body or ?endpoint=.
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "remove subscription", err)
		return
	}
	endpoint := query.Get(r, "endpoint")
	if endpoint == "" && r.ContentLength != 0 {
		var in subscriptionInput
		if err := httperr.DecodeJSON(r, &in); err != nil {
			httperr.Respond(w, h.Log, "remove subscription", err)
			return
		}
		endpoint = in.Endpoint
	}
	if endpoint == "" {
		httperr.Write(w, http.StatusBadRequest, "endpoint is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := pushsubstore.New(h.DB).DeleteByEndpoint(ctx, uid, endpoint); err != nil {
		httperr.Respond(w, h.Log, "remove subscription", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeVAPIDKey handles GET /api/notifications/vapid-public-key.
func (h *Handler) ServeVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.Push == nil || !h.Push.Enabled() {
		httperr.Write(w, http.StatusServiceUnavailable, webpush.ErrDisabled.Error())
		return
	}
	httperr.JSON(w, http.StatusOK, map[string]string{"public_key": h.Push.PublicKey()})
}

// HandleTest handles POST /api/notifications/test: one message to each of
// the caller's subscriptions. Gone subscriptions are removed.
func (h *Handler) HandleTest(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "test notification", err)
		return
	}
	if h.Push == nil || !h.Push.Enabled() {
		httperr.Write(w, http.StatusServiceUnavailable, webpush.ErrDisabled.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := pushsubstore.New(h.DB)
	subs, err := store.ListByUser(ctx, uid)
	if err != nil {
		httperr.Respond(w, h.Log, "test notification", err)
		return
	}
	if len(subs) == 0 {
		httperr.Write(w, http.StatusBadRequest, "no push subscriptions registered")
		return
	}

	msg := webpush.Message{
		Title: "Test notification",
		Body:  "Push notifications are working.",
		Tag:   "test",
		URL:   h.BaseURL + "/",
	}
	var sent, removed, failed int
	for _, sub := range subs {
		err := h.Push.Send(ctx, sub, msg)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, webpush.ErrGone):
			removed++
			if derr := store.DeleteByID(ctx, sub.ID); derr != nil {
				h.Log.Warn("delete expired subscription", zap.Error(derr))
			}
		default:
			failed++
			h.Log.Warn("test push failed", zap.String("user_id", uid.Hex()), zap.Error(err))
		}
	}
	httperr.JSON(w, http.StatusOK, map[string]int{"sent": sent, "removed": removed, "failed": failed})
}
