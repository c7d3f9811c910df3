package notifier

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/larder/internal/app/system/mailer"
	"github.com/dalemusser/larder/internal/app/system/webpush"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeSettings struct {
	rows    []models.NotificationSettings
	claimed map[primitive.ObjectID]string
	minute  string
	day     string
}

func (f *fakeSettings) ListDue(_ context.Context, minute, day string) ([]models.NotificationSettings, error) {
	f.minute, f.day = minute, day
	var out []models.NotificationSettings
	for _, r := range f.rows {
		if f.claimed[r.ID] != day {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSettings) MarkNotified(_ context.Context, id primitive.ObjectID, day string) (bool, error) {
	if f.claimed[id] == day {
		return false, nil
	}
	f.claimed[id] = day
	return true, nil
}

type fakeMembers map[primitive.ObjectID][]primitive.ObjectID

func (f fakeMembers) GroupIDsForUser(_ context.Context, uid primitive.ObjectID) ([]primitive.ObjectID, error) {
	return f[uid], nil
}

type fakeFoods []models.FoodItemWithCategory

func (f fakeFoods) ListWithExpiry(_ context.Context, gids []primitive.ObjectID) ([]models.FoodItemWithCategory, error) {
	want := map[primitive.ObjectID]bool{}
	for _, g := range gids {
		want[g] = true
	}
	var out []models.FoodItemWithCategory
	for _, it := range f {
		if want[it.GroupID] {
			out = append(out, it)
		}
	}
	return out, nil
}

type fakeSubs struct {
	subs    []models.PushSubscription
	deleted []primitive.ObjectID
}

func (f *fakeSubs) ListByUser(_ context.Context, uid primitive.ObjectID) ([]models.PushSubscription, error) {
	var out []models.PushSubscription
	for _, s := range f.subs {
		if s.UserID == uid {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeUsers map[primitive.ObjectID]models.User

func (f fakeUsers) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u := f[id]
	return &u, nil
}

type fakePush struct {
	mu   sync.Mutex
	sent []webpush.Message
	gone map[string]bool
}

func (f *fakePush) Enabled() bool { return true }

func (f *fakePush) Send(_ context.Context, sub models.PushSubscription, msg webpush.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gone[sub.Endpoint] {
		return webpush.ErrGone
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeMail struct{ sent []mailer.Email }

func (f *fakeMail) Send(_ context.Context, e mailer.Email) error {
	f.sent = append(f.sent, e)
	return nil
}

func day(t time.Time, offset int) *time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day()+offset, 0, 0, 0, 0, time.UTC)
	return &d
}

func food(gid primitive.ObjectID, name string, expiry *time.Time) models.FoodItemWithCategory {
	return models.FoodItemWithCategory{FoodItem: models.FoodItem{
		ID: primitive.NewObjectID(), GroupID: gid, Name: name, ExpiryDate: expiry,
	}}
}

func TestSweep_SendsPushAndEmailOncePerDay(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 5, 10, 9, 0, 30, 0, loc)

	uid := primitive.NewObjectID()
	gid := primitive.NewObjectID()
	ns := models.DefaultNotificationSettings(uid, nil)
	ns.ID = primitive.NewObjectID()
	ns.EmailEnabled = true

	settings := &fakeSettings{rows: []models.NotificationSettings{ns}, claimed: map[primitive.ObjectID]string{}}
	subs := &fakeSubs{subs: []models.PushSubscription{
		{ID: primitive.NewObjectID(), UserID: uid, Endpoint: "https://ok"},
		{ID: primitive.NewObjectID(), UserID: uid, Endpoint: "https://gone"},
	}}
	push := &fakePush{gone: map[string]bool{"https://gone": true}}
	mail := &fakeMail{}
	foods := fakeFoods{
		food(gid, "Milk", day(now, -1)),
		food(gid, "Yogurt", day(now, 2)),
		food(gid, "Cheese", day(now, 6)),
		food(gid, "Rice", day(now, 30)),
		food(gid, "Salt", nil),
	}

	n := New(Deps{
		Settings:      settings,
		Members:       fakeMembers{uid: {gid}},
		Foods:         foods,
		Subscriptions: subs,
		Users:         fakeUsers{uid: {ID: uid, Email: "ana@example.com"}},
		Push:          push,
		Mail:          mail,
	}, loc, "Larder", "https://larder.example.com/", zap.NewNop())
	n.now = func() time.Time { return now }

	if err := n.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if settings.minute != "09:00" || settings.day != "2026-05-10" {
		t.Errorf("ListDue called with %q %q", settings.minute, settings.day)
	}

	if len(push.sent) != 3 {
		t.Fatalf("expected 3 push messages, got %d", len(push.sent))
	}
	tags := []string{push.sent[0].Tag, push.sent[1].Tag, push.sent[2].Tag}
	want := []string{"expiry-expired", "expiry-warning", "expiry-caution"}
	for i := range want {
		if tags[i] != want[i] {
			t.Errorf("tag[%d] = %q, want %q", i, tags[i], want[i])
		}
	}
	if !strings.Contains(push.sent[0].Body, "Milk") || strings.Contains(push.sent[2].Body, "Rice") {
		t.Errorf("unexpected bodies: %+v", push.sent)
	}
	if len(subs.deleted) != 1 || subs.deleted[0] != subs.subs[1].ID {
		t.Errorf("expected gone subscription deleted, got %v", subs.deleted)
	}

	if len(mail.sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mail.sent))
	}
	if mail.sent[0].To != "ana@example.com" {
		t.Errorf("email to %q", mail.sent[0].To)
	}
	if !strings.Contains(mail.sent[0].Subject, "3 items") {
		t.Errorf("subject = %q", mail.sent[0].Subject)
	}

	// Same day again: nothing new.
	if err := n.Sweep(context.Background()); err != nil {
		t.Fatalf("second Sweep failed: %v", err)
	}
	if len(push.sent) != 3 || len(mail.sent) != 1 {
		t.Errorf("expected no repeat notifications, push=%d mail=%d", len(push.sent), len(mail.sent))
	}
}

func TestBuildAlert_RespectsFlagsAndThresholds(t *testing.T) {
	items := []models.ExpiringFoodItem{
		{ExpiryStatus: "expired", DaysUntilExpiry: -2},
		{ExpiryStatus: "warning", DaysUntilExpiry: 2},
		{ExpiryStatus: "caution", DaysUntilExpiry: 5},
	}
	items[0].Name, items[1].Name, items[2].Name = "A", "B", "C"

	tests := []struct {
		name    string
		mutate  func(*models.NotificationSettings)
		e, w, c int
	}{
		{"defaults", func(*models.NotificationSettings) {}, 1, 1, 1},
		{"only one day ahead", func(ns *models.NotificationSettings) { ns.DaysBeforeExpiry = []int{1} }, 1, 0, 0},
		{"caution off", func(ns *models.NotificationSettings) { ns.NotifyCaution = false }, 1, 1, 0},
		{"expired off", func(ns *models.NotificationSettings) { ns.NotifyExpired = false }, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ns := models.DefaultNotificationSettings(primitive.NewObjectID(), nil)
			tt.mutate(&ns)
			a := BuildAlert(items, ns)
			if len(a.Expired) != tt.e || len(a.Warning) != tt.w || len(a.Caution) != tt.c {
				t.Errorf("got e=%d w=%d c=%d, want %d %d %d",
					len(a.Expired), len(a.Warning), len(a.Caution), tt.e, tt.w, tt.c)
			}
		})
	}
}

func TestSweep_GroupScopedRowSkipsOtherGroups(t *testing.T) {
	now := time.Date(2026, 5, 10, 18, 30, 0, 0, time.UTC)
	uid := primitive.NewObjectID()
	home := primitive.NewObjectID()
	office := primitive.NewObjectID()

	ns := models.DefaultNotificationSettings(uid, &home)
	ns.ID = primitive.NewObjectID()
	ns.NotificationTime = "18:30:00"

	push := &fakePush{}
	n := New(Deps{
		Settings:      &fakeSettings{rows: []models.NotificationSettings{ns}, claimed: map[primitive.ObjectID]string{}},
		Members:       fakeMembers{},
		Foods:         fakeFoods{food(office, "Sandwich", day(now, 0))},
		Subscriptions: &fakeSubs{subs: []models.PushSubscription{{UserID: uid, Endpoint: "https://ok"}}},
		Users:         fakeUsers{},
		Push:          push,
	}, time.UTC, "Larder", "", zap.NewNop())
	n.now = func() time.Time { return now }

	if err := n.Sweep(context.Background()); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if len(push.sent) != 0 {
		t.Errorf("expected nothing sent for other group's items, got %d", len(push.sent))
	}
}

func TestSweep_GroupRowSilentAfterLeavingGroup(t *testing.T) {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	uid := primitive.NewObjectID()
	gid := primitive.NewObjectID()
	other := primitive.NewObjectID()

	ns := models.DefaultNotificationSettings(uid, &gid)
	ns.ID = primitive.NewObjectID()
	ns.EmailEnabled = true

	tests := []struct {
		name    string
		members fakeMembers
		want    int
	}{
		{"still a member", fakeMembers{uid: {other, gid}}, 1},
		{"removed from group", fakeMembers{uid: {other}}, 0},
		{"in no groups", fakeMembers{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			push := &fakePush{}
			mail := &fakeMail{}
			n := New(Deps{
				Settings: &fakeSettings{rows: []models.NotificationSettings{ns}, claimed: map[primitive.ObjectID]string{}},
				Members:  tt.members,
				Foods: fakeFoods{
					food(gid, "Milk", day(now, 1)),
					food(other, "Bread", day(now, 1)),
				},
				Subscriptions: &fakeSubs{subs: []models.PushSubscription{{UserID: uid, Endpoint: "https://ok"}}},
				Users:         fakeUsers{uid: {ID: uid, Email: "ana@example.com"}},
				Push:          push,
				Mail:          mail,
			}, time.UTC, "Larder", "", zap.NewNop())
			n.now = func() time.Time { return now }

			if err := n.Sweep(context.Background()); err != nil {
				t.Fatalf("Sweep failed: %v", err)
			}
			if len(push.sent) != tt.want || len(mail.sent) != tt.want {
				t.Fatalf("push=%d mail=%d, want %d each", len(push.sent), len(mail.sent), tt.want)
			}
			for _, m := range push.sent {
				if strings.Contains(m.Body, "Bread") {
					t.Errorf("group row leaked another group's item: %q", m.Body)
				}
			}
		})
	}
}

func TestMessages_Wording(t *testing.T) {
	one := Alert{Warning: []models.ExpiringFoodItem{{}}}
	one.Warning[0].Name = "Milk"
	two := Alert{Expired: []models.ExpiringFoodItem{{}, {}}}
	two.Expired[0].Name, two.Expired[1].Name = "Milk", "Eggs"

	if got := one.Messages("/")[0].Body; got != "Milk expires within 3 days" {
		t.Errorf("single body = %q", got)
	}
	if got := two.Messages("/")[0].Body; got != "Milk, Eggs have expired" {
		t.Errorf("plural body = %q", got)
	}
}
