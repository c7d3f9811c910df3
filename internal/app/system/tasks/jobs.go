// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper runs one expiry-notification pass.
type Sweeper interface {
	Sweep(ctx context.Context) error
}

// ExpiredCleaner removes expired one-time tokens.
type ExpiredCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// ExpiryNotifyJob runs the expiry notifier on schedule (every minute by
// default; each settings row picks its own minute).
func ExpiryNotifyJob(n Sweeper, schedule string) Job {
	if schedule == "" {
		schedule = "* * * * *"
	}
	return Job{
		Name:     "expiry-notify",
		Schedule: schedule,
		Timeout:  50 * time.Second,
		Run:      n.Sweep,
	}
}

// OAuthStateCleanupJob creates a job that removes expired OAuth state tokens.
// This is a backup for when MongoDB's TTL index cleanup is delayed.
func OAuthStateCleanupJob(stateStore ExpiredCleaner, logger *zap.Logger) Job {
	return cleanupJob("oauth-state-cleanup", "OAuth states", stateStore, logger)
}

// PasswordResetCleanupJob removes expired password reset tokens.
func PasswordResetCleanupJob(resetStore ExpiredCleaner, logger *zap.Logger) Job {
	return cleanupJob("password-reset-cleanup", "password resets", resetStore, logger)
}

func cleanupJob(name, what string, store ExpiredCleaner, logger *zap.Logger) Job {
	return Job{
		Name:     name,
		Schedule: "@hourly",
		Run: func(ctx context.Context) error {
			count, err := store.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired "+what, zap.Int64("count", count))
			}
			return nil
		},
	}
}
