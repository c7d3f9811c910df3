// Package notifier sends scheduled expiry alerts by Web Push and email.
package notifier

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/larder/internal/app/system/expiry"
	"github.com/dalemusser/larder/internal/app/system/mailer"
	"github.com/dalemusser/larder/internal/app/system/metrics"
	"github.com/dalemusser/larder/internal/app/system/webpush"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SettingsSource finds due settings rows and claims them for a day.
type SettingsSource interface {
	ListDue(ctx context.Context, minute, day string) ([]models.NotificationSettings, error)
	MarkNotified(ctx context.Context, id primitive.ObjectID, day string) (bool, error)
}

// MembershipSource resolves the groups a user currently belongs to.
type MembershipSource interface {
	GroupIDsForUser(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
}

// GroupSource resolves group names for messages.
type GroupSource interface {
	GetMany(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Group, error)
}

// FoodSource lists dated food items across groups.
type FoodSource interface {
	ListWithExpiry(ctx context.Context, groupIDs []primitive.ObjectID) ([]models.FoodItemWithCategory, error)
}

// SubscriptionSource lists and prunes push subscriptions.
type SubscriptionSource interface {
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.PushSubscription, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) error
}

// UserSource loads the email recipient.
type UserSource interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// PushSender delivers one push message.
type PushSender interface {
	Enabled() bool
	Send(ctx context.Context, sub models.PushSubscription, msg webpush.Message) error
}

// Deps groups the notifier's collaborators.
type Deps struct {
	Settings      SettingsSource
	Members       MembershipSource
	Groups        GroupSource
	Foods         FoodSource
	Subscriptions SubscriptionSource
	Users         UserSource
	Push          PushSender
	Mail          mailer.Sender // nil disables email
}

// Notifier runs expiry sweeps.
type Notifier struct {
	deps     Deps
	loc      *time.Location
	siteName string
	baseURL  string
	log      *zap.Logger
	now      func() time.Time
}

// New creates a Notifier that evaluates notification times in loc.
func New(deps Deps, loc *time.Location, siteName, baseURL string, logger *zap.Logger) *Notifier {
	if loc == nil {
		loc = time.Local
	}
	return &Notifier{
		deps:     deps,
		loc:      loc,
		siteName: siteName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		log:      logger,
		now:      time.Now,
	}
}

// Alert is the set of items one settings row is notified about.
type Alert struct {
	Expired []models.ExpiringFoodItem
	Warning []models.ExpiringFoodItem
	Caution []models.ExpiringFoodItem
}

// Empty reports whether there is nothing to send.
func (a Alert) Empty() bool {
	return len(a.Expired)+len(a.Warning)+len(a.Caution) == 0
}

// BuildAlert filters items for ns: threshold days first, then the per-status
// flags. Safe items are never alerted.
func BuildAlert(items []models.ExpiringFoodItem, ns models.NotificationSettings) Alert {
	g := expiry.Group(expiry.FilterForAlert(items, ns.DaysBeforeExpiry))
	var a Alert
	if ns.NotifyExpired {
		a.Expired = g.Expired
	}
	if ns.NotifyWarning {
		a.Warning = g.Warning
	}
	if ns.NotifyCaution {
		a.Caution = g.Caution
	}
	return a
}

// Messages renders one push message per non-empty status.
func (a Alert) Messages(url string) []webpush.Message {
	var out []webpush.Message
	add := func(items []models.ExpiringFoodItem, title, one, many, tag string) {
		if len(items) == 0 {
			return
		}
		suffix := many
		if len(items) == 1 {
			suffix = one
		}
		out = append(out, webpush.Message{
			Title: title,
			Body:  joinNames(items) + suffix,
			Tag:   tag,
			URL:   url,
		})
	}
	add(a.Expired, "Food has expired", " has expired", " have expired", "expiry-expired")
	add(a.Warning, "Food expiring soon", " expires within 3 days", " expire within 3 days", "expiry-warning")
	add(a.Caution, "Food expiring this week", " expires within 7 days", " expire within 7 days", "expiry-caution")
	return out
}

func keepGroup(ids []primitive.ObjectID, gid primitive.ObjectID) []primitive.ObjectID {
	for _, id := range ids {
		if id == gid {
			return []primitive.ObjectID{gid}
		}
	}
	return nil
}

func joinNames(items []models.ExpiringFoodItem) string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
	}
	return strings.Join(names, ", ")
}

// Sweep notifies every settings row due in the current minute. Failures on
// one row are logged and the sweep continues.
func (n *Notifier) Sweep(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObserveNotifierSweep(time.Since(start)) }()

	now := n.now().In(n.loc)
	minute := now.Format("15:04")
	day := now.Format(expiry.DateLayout)

	rows, err := n.deps.Settings.ListDue(ctx, minute, day)
	if err != nil {
		return err
	}
	for _, ns := range rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := n.notify(ctx, ns, now, day); err != nil {
			n.log.Warn("expiry notification failed",
				zap.String("user_id", ns.UserID.Hex()),
				zap.Error(err))
		}
	}
	return nil
}

func (n *Notifier) notify(ctx context.Context, ns models.NotificationSettings, now time.Time, day string) error {
	claimed, err := n.deps.Settings.MarkNotified(ctx, ns.ID, day)
	if err != nil || !claimed {
		return err
	}

	groupIDs, err := n.deps.Members.GroupIDsForUser(ctx, ns.UserID)
	if err != nil {
		return err
	}
	if ns.GroupID != nil {
		// A group row only counts while the user still belongs to it.
		groupIDs = keepGroup(groupIDs, *ns.GroupID)
	}
	if len(groupIDs) == 0 {
		return nil
	}

	items, err := n.deps.Foods.ListWithExpiry(ctx, groupIDs)
	if err != nil {
		return err
	}
	alert := BuildAlert(expiry.Annotate(items, now), ns)
	if alert.Empty() {
		return nil
	}

	var errs []error
	if ns.PushEnabled && n.deps.Push != nil && n.deps.Push.Enabled() {
		errs = append(errs, n.sendPush(ctx, ns.UserID, alert))
	}
	if ns.EmailEnabled && n.deps.Mail != nil {
		errs = append(errs, n.sendEmail(ctx, ns.UserID, groupIDs, alert))
	}
	return errors.Join(errs...)
}

func (n *Notifier) sendPush(ctx context.Context, userID primitive.ObjectID, a Alert) error {
	subs, err := n.deps.Subscriptions.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	msgs := a.Messages(n.baseURL + "/")
	for _, sub := range subs {
		for _, msg := range msgs {
			err := n.deps.Push.Send(ctx, sub, msg)
			switch {
			case err == nil:
				metrics.RecordNotification("push", "sent")
			case errors.Is(err, webpush.ErrGone):
				metrics.RecordNotification("push", "gone")
				if derr := n.deps.Subscriptions.DeleteByID(ctx, sub.ID); derr != nil {
					n.log.Warn("delete expired subscription", zap.Error(derr))
				}
			default:
				metrics.RecordNotification("push", "error")
				n.log.Warn("push send failed",
					zap.String("user_id", userID.Hex()),
					zap.String("tag", msg.Tag),
					zap.Error(err))
			}
			if errors.Is(err, webpush.ErrGone) {
				break
			}
		}
	}
	return nil
}

func (n *Notifier) sendEmail(ctx context.Context, userID primitive.ObjectID, groupIDs []primitive.ObjectID, a Alert) error {
	u, err := n.deps.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	names := map[primitive.ObjectID]models.Group{}
	if len(groupIDs) > 1 && n.deps.Groups != nil {
		if names, err = n.deps.Groups.GetMany(ctx, groupIDs); err != nil {
			return err
		}
	}
	section := func(heading string, items []models.ExpiringFoodItem) mailer.ExpiryDigestSection {
		s := mailer.ExpiryDigestSection{Heading: heading}
		for _, it := range items {
			s.Items = append(s.Items, mailer.ExpiryDigestItem{
				Name:     it.Name,
				Group:    names[it.GroupID].Name,
				When:     expiry.DescribeDays(it.DaysUntilExpiry),
				Location: locationLabel(it.StorageLocation),
			})
		}
		return s
	}
	email := mailer.BuildExpiryDigestEmail(mailer.ExpiryDigestData{
		SiteName: n.siteName,
		AppLink:  n.baseURL,
		Sections: []mailer.ExpiryDigestSection{
			section(expiry.Label(expiry.Expired), a.Expired),
			section(expiry.Label(expiry.Warning), a.Warning),
			section(expiry.Label(expiry.Caution), a.Caution),
		},
	})
	email.To = u.Email
	if err := n.deps.Mail.Send(ctx, email); err != nil {
		metrics.RecordNotification("email", "error")
		return err
	}
	metrics.RecordNotification("email", "sent")
	return nil
}

func locationLabel(l models.StorageLocation) string {
	if l == "" {
		return ""
	}
	return expiry.LocationLabel(l)
}
