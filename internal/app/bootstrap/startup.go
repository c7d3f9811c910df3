// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/larder/internal/app/store/audit"
	fooditemstore "github.com/dalemusser/larder/internal/app/store/fooditems"
	groupstore "github.com/dalemusser/larder/internal/app/store/groups"
	membershipstore "github.com/dalemusser/larder/internal/app/store/memberships"
	settingsstore "github.com/dalemusser/larder/internal/app/store/notifysettings"
	"github.com/dalemusser/larder/internal/app/store/oauthstate"
	passwordreset "github.com/dalemusser/larder/internal/app/store/passwordresets"
	pushsubstore "github.com/dalemusser/larder/internal/app/store/pushsubs"
	userstore "github.com/dalemusser/larder/internal/app/store/users"
	"github.com/dalemusser/larder/internal/app/system/auditlog"
	"github.com/dalemusser/larder/internal/app/system/mailer"
	"github.com/dalemusser/larder/internal/app/system/notifier"
	"github.com/dalemusser/larder/internal/app/system/ratelimit"
	"github.com/dalemusser/larder/internal/app/system/tasks"
	"github.com/dalemusser/larder/internal/app/system/webpush"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// services are the long-lived collaborators built once at startup.
type services struct {
	Loc       *time.Location
	Mailer    *mailer.Mailer
	Pusher    *webpush.Pusher
	Limiter   *ratelimit.LoginLimiter
	Scheduler *tasks.Scheduler
	Audit     *auditlog.Logger

	stopHub context.CancelFunc
	hubDone chan struct{}
}

// Startup builds the mailer, push sender and notifier, starts the realtime
// broker loop and schedules background jobs.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	loc, err := time.LoadLocation(appCfg.NotifyTimezone)
	if err != nil {
		return fmt.Errorf("notify_timezone: %w", err)
	}
	svc := deps.svc
	svc.Loc = loc
	svc.Mailer = mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		User:     appCfg.MailSMTPUser,
		Pass:     appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	svc.Pusher = webpush.New(webpush.Config{
		PublicKey:  appCfg.VAPIDPublicKey,
		PrivateKey: appCfg.VAPIDPrivateKey,
		Subscriber: appCfg.VAPIDSubscriber,
	}, logger)
	svc.Limiter = ratelimit.NewLoginLimiter()
	svc.Audit = auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	hubCtx, stop := context.WithCancel(context.Background())
	svc.stopHub = stop
	svc.hubDone = make(chan struct{})
	go func() {
		defer close(svc.hubDone)
		if err := deps.Hub.Run(hubCtx); err != nil {
			logger.Error("realtime broker stopped", zap.Error(err))
		}
	}()

	var cleanup []tasks.Job
	svc.Scheduler, cleanup, err = newScheduler(appCfg, deps, svc, logger)
	if err != nil {
		stop()
		return err
	}
	svc.Scheduler.Start()
	// Rows left over from before a restart are pruned without waiting a day.
	go func() {
		for _, j := range cleanup {
			svc.Scheduler.RunNow(j)
		}
	}()

	logger.Info("larder started",
		zap.String("notify_timezone", loc.String()),
		zap.Bool("web_push", svc.Pusher.Enabled()),
		zap.Bool("redis_broker", deps.Broker != nil))
	return nil
}

// newScheduler registers the background jobs and also returns the cleanup
// jobs so startup can run them once.
func newScheduler(appCfg AppConfig, deps DBDeps, svc *services, logger *zap.Logger) (*tasks.Scheduler, []tasks.Job, error) {
	db := deps.MongoDatabase
	n := notifier.New(notifier.Deps{
		Settings:      settingsstore.New(db),
		Members:       membershipstore.New(db),
		Groups:        groupstore.New(db),
		Foods:         fooditemstore.New(db),
		Subscriptions: pushsubstore.New(db),
		Users:         userstore.New(db),
		Push:          svc.Pusher,
		Mail:          svc.Mailer,
	}, svc.Loc, appCfg.MailFromName, appCfg.BaseURL, logger)

	s := tasks.NewScheduler(svc.Loc, logger)
	cleanup := []tasks.Job{
		tasks.OAuthStateCleanupJob(oauthstate.New(db), logger),
		tasks.PasswordResetCleanupJob(passwordreset.New(db, appCfg.PasswordResetExpiry), logger),
	}
	jobs := append([]tasks.Job{tasks.ExpiryNotifyJob(n, appCfg.NotifySchedule)}, cleanup...)
	for _, j := range jobs {
		if err := s.Add(j); err != nil {
			return nil, nil, fmt.Errorf("schedule %s: %w", j.Name, err)
		}
	}
	return s, cleanup, nil
}
