package authapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/larder/internal/app/store/audit"
	userstore "github.com/dalemusser/larder/internal/app/store/users"
	"github.com/dalemusser/larder/internal/app/system/auditlog"
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/dalemusser/larder/internal/app/system/mailer"
	"github.com/dalemusser/larder/internal/app/system/ratelimit"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/larder/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (m *captureMailer) Send(_ context.Context, e mailer.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, e)
	return nil
}

func newTestHandler(t *testing.T, db *mongo.Database, m mailer.Sender) *Handler {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager(strings.Repeat("k", 32), "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	limiter := ratelimit.NewLoginLimiter()
	t.Cleanup(limiter.Stop)

	h := NewHandler(db, sm, limiter, m, time.Hour, "https://larder.test/", logger)
	h.Cost = bcrypt.MinCost
	return h
}

func hasSessionCookie(rec *testutil.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.MaxAge >= 0 {
			return true
		}
	}
	return false
}

func TestSignUp_CreatesUserAndSession(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, nil)

	req := testutil.JSONRequest(http.MethodPost, "/signup", credentials{
		Email:    "  Pat@Example.COM ",
		Password: "long-enough",
		FullName: "Pat <b>Smith</b>",
	})
	rec := testutil.NewRecorder()
	h.HandleSignUp(rec, req)

	rec.AssertStatus(t, http.StatusCreated)
	var got models.User
	rec.DecodeJSON(t, &got)
	if got.Email != "pat@example.com" {
		t.Errorf("email = %q, want normalized", got.Email)
	}
	if got.FullName != "Pat Smith" {
		t.Errorf("full_name = %q, want tags stripped", got.FullName)
	}
	if got.AuthMethod != models.AuthPassword {
		t.Errorf("auth_method = %q", got.AuthMethod)
	}
	if strings.Contains(rec.Body.String(), "$2a$") {
		t.Error("response leaked the password hash")
	}
	if !hasSessionCookie(rec) {
		t.Error("expected a session cookie")
	}
}

func TestSignUp_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, nil)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"bad email", credentials{Email: "nope", Password: "long-enough"}, http.StatusBadRequest},
		{"short password", credentials{Email: "a@b.co", Password: "short"}, http.StatusBadRequest},
		{"overlong password", credentials{Email: "a@b.co", Password: strings.Repeat("x", 73)}, http.StatusBadRequest},
		{"unknown field", `{"email":"a@b.co","password":"long-enough","admin":true}`, http.StatusBadRequest},
		{"malformed", `{"email":`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			h.HandleSignUp(rec, testutil.JSONRequest(http.MethodPost, "/signup", tc.body))
			rec.AssertStatus(t, tc.want)
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures := testutil.NewFixtures(t, db)
	fixtures.CreateUser(ctx, "Existing", "dup@example.com")
	h := newTestHandler(t, db, nil)

	rec := testutil.NewRecorder()
	h.HandleSignUp(rec, testutil.JSONRequest(http.MethodPost, "/signup", credentials{
		Email: "DUP@example.com", Password: "long-enough",
	}))
	rec.AssertStatus(t, http.StatusConflict)
}

func TestLogin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures := testutil.NewFixtures(t, db)
	fixtures.CreateUser(ctx, "Pat", "pat@example.com")
	h := newTestHandler(t, db, nil)

	t.Run("wrong password", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.JSONRequest(http.MethodPost, "/login", credentials{
			Email: "pat@example.com", Password: "wrong-password",
		}))
		rec.AssertStatus(t, http.StatusUnauthorized)
		if rec.ErrorMessage() != "invalid email or password" {
			t.Errorf("error = %q", rec.ErrorMessage())
		}
	})

	t.Run("unknown email gets the same answer", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.JSONRequest(http.MethodPost, "/login", credentials{
			Email: "nobody@example.com", Password: "whatever-123",
		}))
		rec.AssertStatus(t, http.StatusUnauthorized)
		if rec.ErrorMessage() != "invalid email or password" {
			t.Errorf("error = %q", rec.ErrorMessage())
		}
	})

	t.Run("success", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.HandleLogin(rec, testutil.JSONRequest(http.MethodPost, "/login", credentials{
			Email: "PAT@example.com", Password: testutil.TestPassword,
		}))
		rec.AssertStatus(t, http.StatusOK)
		rec.AssertContains(t, `"email":"pat@example.com"`)
		if !hasSessionCookie(rec) {
			t.Error("expected a session cookie")
		}
	})
}

func TestLogin_RateLimited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, nil)
	h.Limiter = ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	t.Cleanup(h.Limiter.Stop)

	var last *testutil.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = testutil.NewRecorder()
		h.HandleLogin(last, testutil.JSONRequest(http.MethodPost, "/login", credentials{
			Email: "pat@example.com", Password: "wrong-password",
		}))
	}
	last.AssertStatus(t, http.StatusTooManyRequests)
}

func TestLogin_GoogleOnlyAccountRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if _, err := userstore.New(db).Create(ctx, models.User{
		Email: "g@example.com", AuthMethod: models.AuthGoogle,
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	h := newTestHandler(t, db, nil)

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(http.MethodPost, "/login", credentials{
		Email: "g@example.com", Password: "anything-long",
	}))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func TestLogout(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, nil)

	rec := testutil.NewRecorder()
	h.HandleLogout(rec, testutil.NewRequest(http.MethodPost, "/logout"))
	rec.AssertStatus(t, http.StatusNoContent)
	if hasSessionCookie(rec) {
		t.Error("expected the session cookie to be expired")
	}
}

func TestServeMe(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures := testutil.NewFixtures(t, db)
	u := fixtures.CreateUser(ctx, "Pat", "pat@example.com")
	h := newTestHandler(t, db, nil)

	t.Run("signed out", func(t *testing.T) {
		rec := testutil.NewRecorder()
		h.ServeMe(rec, testutil.NewRequest(http.MethodGet, "/me"))
		rec.AssertStatus(t, http.StatusUnauthorized)
	})

	t.Run("signed in", func(t *testing.T) {
		rec := testutil.NewRecorder()
		req := testutil.WithUser(testutil.NewRequest(http.MethodGet, "/me"), testutil.UserFrom(u))
		h.ServeMe(rec, req)
		rec.AssertStatus(t, http.StatusOK)
		var got models.User
		rec.DecodeJSON(t, &got)
		if got.ID != u.ID {
			t.Errorf("id = %s, want %s", got.ID.Hex(), u.ID.Hex())
		}
	})

	t.Run("deleted user", func(t *testing.T) {
		rec := testutil.NewRecorder()
		req := testutil.WithUser(testutil.NewRequest(http.MethodGet, "/me"), testutil.NewTestUser())
		h.ServeMe(rec, req)
		rec.AssertStatus(t, http.StatusUnauthorized)
	})
}

func TestPasswordReset_Flow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fixtures := testutil.NewFixtures(t, db)
	fixtures.CreateUser(ctx, "Pat", "pat@example.com")
	m := &captureMailer{}
	h := newTestHandler(t, db, m)

	rec := testutil.NewRecorder()
	h.HandleResetRequest(rec, testutil.JSONRequest(http.MethodPost, "/password/reset-request", resetRequest{Email: "pat@example.com"}))
	rec.AssertStatus(t, http.StatusAccepted)

	if len(m.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(m.sent))
	}
	msg := m.sent[0]
	if msg.To != "pat@example.com" {
		t.Errorf("to = %q", msg.To)
	}
	if !strings.Contains(msg.TextBody, "1 hour") {
		t.Errorf("body should state the expiry: %q", msg.TextBody)
	}

	start := strings.Index(msg.TextBody, "https://larder.test/reset?token=")
	if start < 0 {
		t.Fatalf("reset link missing from body: %q", msg.TextBody)
	}
	link := strings.Fields(msg.TextBody[start:])[0]
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	token := parsed.Query().Get("token")

	rec = testutil.NewRecorder()
	h.HandleReset(rec, testutil.JSONRequest(http.MethodPost, "/password/reset", resetConfirm{
		Token: token, Password: "brand-new-secret",
	}))
	rec.AssertStatus(t, http.StatusNoContent)

	// The token is single use.
	rec = testutil.NewRecorder()
	h.HandleReset(rec, testutil.JSONRequest(http.MethodPost, "/password/reset", resetConfirm{
		Token: token, Password: "another-secret",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(http.MethodPost, "/login", credentials{
		Email: "pat@example.com", Password: "brand-new-secret",
	}))
	rec.AssertStatus(t, http.StatusOK)
}

func TestPasswordReset_UnknownEmailIsAccepted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := &captureMailer{}
	h := newTestHandler(t, db, m)

	rec := testutil.NewRecorder()
	h.HandleResetRequest(rec, testutil.JSONRequest(http.MethodPost, "/password/reset-request", resetRequest{Email: "ghost@example.com"}))
	rec.AssertStatus(t, http.StatusAccepted)
	if len(m.sent) != 0 {
		t.Errorf("sent %d emails for an unknown address", len(m.sent))
	}
}

func TestPasswordReset_MalformedEmailRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	m := &captureMailer{}
	h := newTestHandler(t, db, m)

	rec := testutil.NewRecorder()
	h.HandleResetRequest(rec, testutil.JSONRequest(http.MethodPost, "/password/reset-request", resetRequest{Email: "pat.example.com"}))
	rec.AssertStatus(t, http.StatusBadRequest)
	if len(m.sent) != 0 {
		t.Errorf("sent %d emails for a malformed address", len(m.sent))
	}
}

func TestPasswordReset_BadToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newTestHandler(t, db, nil)

	rec := testutil.NewRecorder()
	h.HandleReset(rec, testutil.JSONRequest(http.MethodPost, "/password/reset", resetConfirm{
		Token: "not-a-token", Password: "brand-new-secret",
	}))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestHumanDuration(t *testing.T) {
	tests := map[time.Duration]string{
		time.Hour:        "1 hour",
		3 * time.Hour:    "3 hours",
		30 * time.Minute: "30 minutes",
	}
	for in, want := range tests {
		if got := humanDuration(in); got != want {
			t.Errorf("humanDuration(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestLogin_Audited(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := testutil.NewFixtures(t, db).CreateUser(ctx, "Pat", "pat@example.com")
	h := newTestHandler(t, db, nil)
	h.Audit = auditlog.New(audit.New(db), zap.NewNop(), auditlog.Config{Auth: "db"})

	rec := testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(http.MethodPost, "/login", credentials{
		Email: "pat@example.com", Password: "wrong-password",
	}))
	rec.AssertStatus(t, http.StatusUnauthorized)

	rec = testutil.NewRecorder()
	h.HandleLogin(rec, testutil.JSONRequest(http.MethodPost, "/login", credentials{
		Email: "pat@example.com", Password: testutil.TestPassword,
	}))
	rec.AssertStatus(t, http.StatusOK)

	events, err := audit.New(db).GetByUser(ctx, u.ID, 10)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].EventType != audit.EventLoginSuccess || events[1].EventType != audit.EventLoginFailed {
		t.Errorf("events = %q, %q", events[0].EventType, events[1].EventType)
	}
	if events[1].FailureReason != "wrong password" {
		t.Errorf("FailureReason = %q", events[1].FailureReason)
	}
}
