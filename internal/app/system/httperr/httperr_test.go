package httperr_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/larder/internal/app/system/httperr"
	"github.com/dalemusser/larder/internal/app/system/limits"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return body["error"]
}

func TestRespond(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"typed", httperr.BadRequest("name is required"), http.StatusBadRequest, "name is required"},
		{"wrapped typed", fmt.Errorf("ctx: %w", httperr.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"no documents", mongo.ErrNoDocuments, http.StatusNotFound, "not found"},
		{"internal", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			httperr.Respond(rec, zap.NewNop(), "test", tt.err)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := decodeErr(t, rec); got != tt.msg {
				t.Errorf("error = %q, want %q", got, tt.msg)
			}
		})
	}
}

func TestDecodeJSON_UnknownField(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x","bogus":1}`))
	var dst struct {
		Name string `json:"name"`
	}
	err := httperr.DecodeJSON(r, &dst)
	var he *httperr.Error
	if !errors.As(err, &he) || he.Status != http.StatusBadRequest {
		t.Errorf("expected 400 error, got %v", err)
	}
}

func TestDecodeJSON_OK(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Home"}`))
	var dst struct {
		Name string `json:"name"`
	}
	if err := httperr.DecodeJSON(r, &dst); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dst.Name != "Home" {
		t.Errorf("Name = %q", dst.Name)
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"name":"` + strings.Repeat("x", limits.MaxJSONBody) + `"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	var dst struct {
		Name string `json:"name"`
	}
	err := httperr.DecodeJSON(r, &dst)
	if !errors.Is(err, httperr.ErrBodyTooLarge) {
		t.Errorf("expected ErrBodyTooLarge, got %v", err)
	}
}

func TestPathID(t *testing.T) {
	id := primitive.NewObjectID()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("gid", id.Hex())
	rctx.URLParams.Add("bad", "xyz")
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := httperr.PathID(r, "gid")
	if err != nil || got != id {
		t.Fatalf("PathID(gid) = %v, %v", got, err)
	}

	_, err = httperr.PathID(r, "bad")
	var he *httperr.Error
	if !errors.As(err, &he) || he.Status != http.StatusBadRequest || he.Msg != "invalid bad" {
		t.Errorf("PathID(bad) err = %v", err)
	}
}
