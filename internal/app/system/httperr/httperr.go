// Package httperr writes JSON responses and maps errors to HTTP statuses.
//
// Every API error body has the shape {"error": "<message>"}.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/larder/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Error is an error that carries the HTTP status and the client-facing
// message.
type Error struct {
	Status int
	Msg    string
}

func (e *Error) Error() string { return e.Msg }

// New returns an *Error.
func New(status int, msg string) *Error {
	return &Error{Status: status, Msg: msg}
}

// BadRequest returns a 400 *Error with msg.
func BadRequest(msg string) *Error { return New(http.StatusBadRequest, msg) }

// Common errors.
var (
	ErrUnauthorized = New(http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New(http.StatusForbidden, "forbidden")
	ErrNotFound     = New(http.StatusNotFound, "not found")
)

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Write writes {"error": msg} with the given status.
func Write(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}

// Respond maps err to a response. *Error values are written as-is;
// mongo.ErrNoDocuments becomes 404. Anything else is logged under op and
// returned as a generic 500.
func Respond(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	var he *Error
	switch {
	case errors.As(err, &he):
		Write(w, he.Status, he.Msg)
	case errors.Is(err, mongo.ErrNoDocuments):
		Write(w, http.StatusNotFound, "not found")
	default:
		if log != nil {
			log.Error(op+" failed", zap.Error(err))
		}
		Write(w, http.StatusInternalServerError, "internal error")
	}
}

// ErrBodyTooLarge is returned by DecodeJSON for bodies over limits.MaxJSONBody.
var ErrBodyTooLarge = New(http.StatusRequestEntityTooLarge, "request body too large")

// DecodeJSON reads a JSON request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return BadRequest("request body is required")
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limits.MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrBodyTooLarge
		}
		return BadRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, BadRequest("invalid " + name)
	}
	return id, nil
}
