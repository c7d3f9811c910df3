// internal/app/features/authapi/session.go
package authapi

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/larder/internal/app/store/users"
	"github.com/dalemusser/larder/internal/app/system/auth"
	"github.com/dalemusser/larder/internal/app/system/htmlsanitize"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/normalize"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/larder/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// HandleSignUp handles POST /api/auth/signup.
func (h *Handler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "signup", err)
		return
	}
	email := normalize.Email(in.Email)
	if !validate.SimpleEmailValid(email) {
		httperr.Write(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if err := checkPassword(in.Password); err != nil {
		httperr.Respond(w, h.Log, "signup", err)
		return
	}
	hash, err := h.hash(in.Password)
	if err != nil {
		httperr.Respond(w, h.Log, "signup: hash", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).Create(ctx, models.User{
		Email:        email,
		FullName:     htmlsanitize.PlainText(in.FullName),
		PasswordHash: hash,
		AuthMethod:   models.AuthPassword,
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		httperr.Write(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "signup: create user", err)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, sessionUser(&u)); err != nil {
		httperr.Respond(w, h.Log, "signup: session", err)
		return
	}
	h.Log.Info("user signed up", zap.String("user_id", u.ID.Hex()))
	h.Audit.SignedUp(ctx, r, u.ID, u.Email, models.AuthPassword)
	httperr.JSON(w, http.StatusCreated, u)
}

// HandleLogin handles POST /api/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "login", err)
		return
	}
	email := normalize.Email(in.Email)

	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, email); !ok {
			h.Audit.LoginRateLimited(r.Context(), r, email)
			httperr.Write(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Audit.LoginFailed(ctx, r, nil, email, "user not found")
		httperr.Respond(w, h.Log, "login", errBadCredentials)
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "login: lookup", err)
		return
	}
	if u.PasswordHash == "" {
		// Google-only account.
		h.Audit.LoginFailed(ctx, r, &u.ID, email, "no password set")
		httperr.Respond(w, h.Log, "login", errBadCredentials)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		h.Audit.LoginFailed(ctx, r, &u.ID, email, "wrong password")
		httperr.Respond(w, h.Log, "login", errBadCredentials)
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetEmail(email)
	}
	if err := h.SessionMgr.SignIn(w, r, sessionUser(u)); err != nil {
		httperr.Respond(w, h.Log, "login: session", err)
		return
	}
	h.Audit.LoginSuccess(ctx, r, u.ID, models.AuthPassword, email)
	httperr.JSON(w, http.StatusOK, u)
}

// HandleLogout handles POST /api/auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if su, ok := auth.CurrentUser(r); ok {
		h.Audit.Logout(r.Context(), r, su.ID)
	}
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Warn("logout: clear session", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe handles GET /api/auth/me. It returns 401 when signed out.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		httperr.Respond(w, h.Log, "me", httperr.ErrUnauthorized)
		return
	}
	oid, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "me", httperr.ErrUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByID(ctx, oid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		httperr.Respond(w, h.Log, "me", httperr.ErrUnauthorized)
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "me: lookup", err)
		return
	}
	httperr.JSON(w, http.StatusOK, u)
}
