// internal/app/features/authapi/password.go
package authapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	passwordreset "github.com/dalemusser/larder/internal/app/store/passwordresets"
	userstore "github.com/dalemusser/larder/internal/app/store/users"
	"github.com/dalemusser/larder/internal/app/system/clientip"
	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/mailer"
	"github.com/dalemusser/larder/internal/app/system/normalize"
	"github.com/dalemusser/larder/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type resetRequest struct {
	Email string `json:"email"`
}

type resetConfirm struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// HandleResetRequest handles POST /api/auth/password/reset-request. It
// answers 202 whether or not the email belongs to an account.
func (h *Handler) HandleResetRequest(w http.ResponseWriter, r *http.Request) {
	var in resetRequest
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "reset-request", err)
		return
	}
	email := normalize.Email(in.Email)
	if !validate.SimpleEmailValid(email) {
		httperr.Write(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if h.Limiter != nil {
		if ok, msg := h.Limiter.Check(r, email); !ok {
			httperr.Write(w, http.StatusTooManyRequests, msg)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	accepted := map[string]string{"status": "accepted"}

	u, err := userstore.New(h.DB).GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Log.Info("password reset requested for unknown email", zap.String("ip", clientip.FromRequest(r)))
		httperr.JSON(w, http.StatusAccepted, accepted)
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "reset-request: lookup", err)
		return
	}

	token, err := h.Resets.Create(ctx, u.ID)
	if err != nil {
		httperr.Respond(w, h.Log, "reset-request: create token", err)
		return
	}

	h.Audit.PasswordResetRequested(ctx, r, u.ID)

	if h.Mailer == nil {
		h.Log.Warn("password reset requested but mail is not configured", zap.String("user_id", u.ID.Hex()))
		httperr.JSON(w, http.StatusAccepted, accepted)
		return
	}

	msg := mailer.BuildPasswordResetEmail(mailer.PasswordResetData{
		SiteName:  h.SiteName,
		ResetLink: h.BaseURL + "/reset?token=" + url.QueryEscape(token),
		ExpiresIn: humanDuration(h.Resets.Expiry()),
	})
	msg.To = u.Email
	if err := h.Mailer.Send(ctx, msg); err != nil {
		// The token stays valid; the user can ask again.
		h.Log.Error("send password reset email", zap.String("user_id", u.ID.Hex()), zap.Error(err))
	}
	httperr.JSON(w, http.StatusAccepted, accepted)
}

// HandleReset handles POST /api/auth/password/reset.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var in resetConfirm
	if err := httperr.DecodeJSON(r, &in); err != nil {
		httperr.Respond(w, h.Log, "reset", err)
		return
	}
	if in.Token == "" {
		httperr.Write(w, http.StatusBadRequest, "token is required")
		return
	}
	if err := checkPassword(in.Password); err != nil {
		httperr.Respond(w, h.Log, "reset", err)
		return
	}
	hash, err := h.hash(in.Password)
	if err != nil {
		httperr.Respond(w, h.Log, "reset: hash", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	uid, err := h.Resets.Consume(ctx, in.Token)
	if errors.Is(err, passwordreset.ErrNotFound) {
		httperr.Write(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		httperr.Respond(w, h.Log, "reset: consume", err)
		return
	}
	if err := userstore.New(h.DB).SetPasswordHash(ctx, uid, hash); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			httperr.Write(w, http.StatusBadRequest, passwordreset.ErrNotFound.Error())
			return
		}
		httperr.Respond(w, h.Log, "reset: set password", err)
		return
	}
	h.Log.Info("password reset", zap.String("user_id", uid.Hex()))
	h.Audit.PasswordReset(ctx, r, uid)
	w.WriteHeader(http.StatusNoContent)
}
