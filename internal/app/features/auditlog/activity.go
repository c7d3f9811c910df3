// internal/app/features/auditlog/activity.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/larder/internal/app/store/audit"
	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	userstore "github.com/dalemusser/larder/internal/app/store/users"
	"github.com/dalemusser/larder/internal/app/system/authz"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/paging"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errBadCursor = httperr.BadRequest("before must be a next_before value from a previous page")

type eventView struct {
	audit.Event
	ActorEmail string `json:"actor_email,omitempty"`
	UserEmail  string `json:"user_email,omitempty"`
}

type activityPage struct {
	Events     []eventView `json:"events"`
	NextBefore string      `json:"next_before,omitempty"`
}

// ServeGroupActivity handles GET /api/groups/{gid}/activity (owner only).
// Events come newest first; pass next_before back as ?before= for the
// following page.
func (h *Handler) ServeGroupActivity(w http.ResponseWriter, r *http.Request) {
	uid, err := authz.RequireUserID(r)
	if err != nil {
		httperr.Respond(w, h.Log, "group activity", err)
		return
	}
	gid, err := httperr.PathID(r, "gid")
	if err != nil {
		httperr.Respond(w, h.Log, "group activity", err)
		return
	}
	before, ok := paging.ParseBefore(r)
	if !ok {
		httperr.Respond(w, h.Log, "group activity", errBadCursor)
		return
	}
	limit := paging.ParseLimit(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := authz.RequireOwner(ctx, membershipstore.New(h.DB), gid, uid); err != nil {
		httperr.Respond(w, h.Log, "group activity: membership", err)
		return
	}

	events, err := audit.New(h.DB).ListByGroup(ctx, gid, before.OlderThan("timestamp"), paging.LimitPlusOne(limit))
	if err != nil {
		httperr.Respond(w, h.Log, "group activity", err)
		return
	}
	hasNext := paging.TrimPage(&events, limit)

	views, err := h.views(ctx, events)
	if err != nil {
		httperr.Respond(w, h.Log, "group activity: users", err)
		return
	}

	page := activityPage{Events: views}
	if hasNext {
		last := events[len(events)-1]
		page.NextBefore = paging.EncodeBefore(last.Timestamp, last.ID)
	}
	httperr.JSON(w, http.StatusOK, page)
}

// views attaches actor and user emails to events.
func (h *Handler) views(ctx context.Context, events []audit.Event) ([]eventView, error) {
	emails, err := userstore.New(h.DB).EmailsByIDs(ctx, referencedUsers(events))
	if err != nil {
		return nil, err
	}
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		v := eventView{Event: e}
		if e.ActorID != nil {
			v.ActorEmail = emails[*e.ActorID]
		}
		if e.UserID != nil {
			v.UserEmail = emails[*e.UserID]
		}
		out = append(out, v)
	}
	return out, nil
}

func referencedUsers(events []audit.Event) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	add := func(id *primitive.ObjectID) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for _, e := range events {
		add(e.ActorID)
		add(e.UserID)
	}
	return ids
}
