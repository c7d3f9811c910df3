// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/larder/internal/app/store/audit"
	"github.com/dalemusser/larder/internal/app/system/clientip"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for authentication events (signup, login, logout, password reset).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for group events (create, rename, delete, membership changes).
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.GroupID != nil {
		fields = append(fields, zap.String("group_id", event.GroupID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}
	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if setting == "all" || setting == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func (l *Logger) auth(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, success bool, reason string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		IP:            clientip.FromRequest(r),
		UserAgent:     r.UserAgent(),
		Success:       success,
		FailureReason: reason,
		Details:       details,
	})
}

// --- Authentication Events ---

// SignedUp logs a new account registration.
func (l *Logger) SignedUp(ctx context.Context, r *http.Request, userID primitive.ObjectID, email, method string) {
	l.auth(ctx, r, audit.EventSignup, &userID, true, "", map[string]string{
		"email":       email,
		"auth_method": method,
	})
}

// LoginSuccess logs a successful login.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, method, email string) {
	l.auth(ctx, r, audit.EventLoginSuccess, &userID, true, "", map[string]string{
		"auth_method": method,
		"email":       email,
	})
}

// LoginFailed logs a rejected login. userID is nil when no account matched.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, userID *primitive.ObjectID, email, reason string) {
	l.auth(ctx, r, audit.EventLoginFailed, userID, false, reason, map[string]string{
		"attempted_email": email,
	})
}

// LoginRateLimited logs a login refused by the limiter.
func (l *Logger) LoginRateLimited(ctx context.Context, r *http.Request, email string) {
	l.auth(ctx, r, audit.EventLoginFailedRateLimit, nil, false, "rate limit exceeded", map[string]string{
		"attempted_email": email,
	})
}

// Logout logs a user logout. userIDStr comes from the session and may be empty.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.auth(ctx, r, audit.EventLogout, userID, true, "", nil)
}

// PasswordResetRequested logs a reset email being issued.
func (l *Logger) PasswordResetRequested(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.auth(ctx, r, audit.EventPasswordResetRequested, &userID, true, "", nil)
}

// PasswordReset logs a completed password reset.
func (l *Logger) PasswordReset(ctx context.Context, r *http.Request, userID primitive.ObjectID) {
	l.auth(ctx, r, audit.EventPasswordReset, &userID, true, "", nil)
}

// --- Group Events ---

func (l *Logger) admin(ctx context.Context, r *http.Request, eventType string, groupID, actorID primitive.ObjectID, userID *primitive.ObjectID, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		GroupID:   &groupID,
		ActorID:   &actorID,
		UserID:    userID,
		IP:        clientip.FromRequest(r),
		UserAgent: r.UserAgent(),
		Success:   true,
		Details:   details,
	})
}

// GroupCreated logs a new group.
func (l *Logger) GroupCreated(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name string) {
	l.admin(ctx, r, audit.EventGroupCreated, groupID, actorID, nil, map[string]string{"name": name})
}

// GroupRenamed logs a group name change.
func (l *Logger) GroupRenamed(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, oldName, newName string) {
	l.admin(ctx, r, audit.EventGroupUpdated, groupID, actorID, nil, map[string]string{
		"old_name": oldName,
		"new_name": newName,
	})
}

// GroupDeleted logs a group deletion.
func (l *Logger) GroupDeleted(ctx context.Context, r *http.Request, actorID, groupID primitive.ObjectID, name string) {
	l.admin(ctx, r, audit.EventGroupDeleted, groupID, actorID, nil, map[string]string{"name": name})
}

// MemberAdded logs a user joining a group.
func (l *Logger) MemberAdded(ctx context.Context, r *http.Request, actorID, groupID, userID primitive.ObjectID, role string) {
	l.admin(ctx, r, audit.EventMemberAddedToGroup, groupID, actorID, &userID, map[string]string{"role": role})
}

// MemberRemoved logs a user leaving or being removed from a group.
func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, groupID, userID primitive.ObjectID) {
	l.admin(ctx, r, audit.EventMemberRemovedFromGroup, groupID, actorID, &userID, nil)
}
