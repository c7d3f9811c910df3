// internal/app/features/notifications/settings.go
package notifications

import (
	"context"
	"net/http"
	"time"

	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	settingsstore "github.com/dalemusser/larder/internal/app/store/notifysettings"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// MaxAlertDays bounds each days_before_expiry entry.
const MaxAlertDays = 30

// settingsInput is the PUT body. Omitted fields keep their current value.
type settingsInput struct {
	DaysBeforeExpiry []int  `json:"days_before_expiry"`
	PushEnabled      *bool  `json:"push_enabled"`
	EmailEnabled     *bool  `json:"email_enabled"`
	NotificationTime string `json:"notification_time"`
	NotifyExpired    *bool  `json:"notify_expired"`
	NotifyWarning    *bool  `json:"notify_warning"`
	NotifyCaution    *bool  `json:"notify_caution"`
}

// normalizeTime accepts HH:MM or HH:MM:SS and returns HH:MM:SS.
func normalizeTime(s string) (string, bool) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	return "", false
}

func validDays(days []int) bool {
	for _, d := range days {
		if d < 0 || d > MaxAlertDays {
			return false
		}
	}
	return true
}

// scope reads ?group_id=. An absent id selects the global row; a present
// one requires membership.
func (h *Handler) scope(ctx context.Context, r *http.Request) (uid primitive.ObjectID, gid *primitive.ObjectID, err error) {
	uid, err = authz.RequireUserID(r)
	if err != nil {
		return
	}
	raw := query.Get(r, "group_id")
	if raw == "" {
		return
	}
	id, perr := primitive.ObjectIDFromHex(raw)
	if perr != nil {
		err = httperr.BadRequest("invalid group_id")
		return
	}
	if _, err = authz.RequireMember(ctx, membershipstore.New(h.DB), id, uid); err != nil {
		return
	}
	gid = &id
	return
}

// ServeSettings handles GET /api/notifications/settings. Defaults are
// returned when nothing is saved.
func (h *Handler) ServeSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid, gid, err := h.scope(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "get notification settings", err)
		return
	}
	ns, _, err := settingsstore.New(h.DB).Get(ctx, uid, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "get notification settings", err)
		return
	}
	httperr.JSON(w, http.StatusOK, ns)
}

// HandleSaveSettings handles PUT /api/notifications/settings.
func (h *Handler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var in settingsInput
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "save notification settings", err)
		return
	}
	if !validDays(in.DaysBeforeExpiry) {
		httperr.Write(w, http.StatusBadRequest, "days_before_expiry values must be between 0 and 30")
		return
	}
	var at string
	if in.NotificationTime != "" {
		var ok bool
		if at, ok = normalizeTime(in.NotificationTime); !ok {
			httperr.Write(w, http.StatusBadRequest, "notification_time must be HH:MM or HH:MM:SS")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid, gid, err := h.scope(ctx, r)
	if err != nil {
		httperr.Respond(w, h.Log, "save notification settings", err)
		return
	}
	store := settingsstore.New(h.DB)
	ns, _, err := store.Get(ctx, uid, gid)
	if err != nil {
		httperr.Respond(w, h.Log, "save notification settings", err)
		return
	}

	if in.DaysBeforeExpiry != nil {
		ns.DaysBeforeExpiry = in.DaysBeforeExpiry
	}
	if at != "" {
		ns.NotificationTime = at
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&ns.PushEnabled, in.PushEnabled)
	set(&ns.EmailEnabled, in.EmailEnabled)
	set(&ns.NotifyExpired, in.NotifyExpired)
	set(&ns.NotifyWarning, in.NotifyWarning)
	set(&ns.NotifyCaution, in.NotifyCaution)

	saved, err := store.Upsert(ctx, ns)
	if err != nil {
		httperr.Respond(w, h.Log, "save notification settings", err)
		return
	}
	h.Log.Debug("notification settings saved", zap.String("user_id", uid.Hex()))
	httperr.JSON(w, http.StatusOK, saved)
}
