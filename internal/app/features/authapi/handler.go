// internal/app/features/authapi/handler.go
package authapi

import (
	"net/http"
	"strings"
	"time"

	passwordreset "github.com/dalemusser/larder/internal/app/store/passwordresets"
	"github.com/dalemusser/larder/internal/app/system/auditlog"
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	mailerpkg "github.com/dalemusser/larder/internal/app/system/mailer"
	"github.com/dalemusser/larder/internal/app/system/ratelimit"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the shortest accepted password. bcrypt ignores bytes
// past 72, so longer passwords are rejected rather than silently truncated.
const (
	MinPasswordLen = 8
	MaxPasswordLen = 72
)

// Handler serves the JSON auth endpoints.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter
	Mailer     mailerpkg.Sender // nil disables reset emails
	Resets     *passwordreset.Store
	Audit      *auditlog.Logger // nil disables audit events
	BaseURL    string
	SiteName   string

	// bcrypt cost; tests lower it.
	Cost int
}

// NewHandler constructs the auth handler.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	limiter *ratelimit.LoginLimiter,
	mailer mailerpkg.Sender,
	resetExpiry time.Duration,
	baseURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		SessionMgr: sessionMgr,
		Limiter:    limiter,
		Mailer:     mailer,
		Resets:     passwordreset.New(db, resetExpiry),
		BaseURL:    strings.TrimRight(baseURL, "/"),
		SiteName:   "Larder",
		Cost:       bcrypt.DefaultCost,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
}

func checkPassword(pw string) error {
	switch {
	case len(pw) < MinPasswordLen:
		return httperr.BadRequest("password must be at least 8 characters")
	case len(pw) > MaxPasswordLen:
		return httperr.BadRequest("password must be at most 72 bytes")
	}
	return nil
}

func (h *Handler) hash(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func sessionUser(u *models.User) *auth.SessionUser {
	return &auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email}
}

var errBadCredentials = httperr.New(http.StatusUnauthorized, "invalid email or password")
