package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBuildPasswordResetEmail(t *testing.T) {
	e := BuildPasswordResetEmail(PasswordResetData{
		SiteName:  "Larder",
		ResetLink: "http://localhost:3000/reset?token=abc",
		ExpiresIn: "1 hour",
	})
	if e.Subject != "Reset your Larder password" {
		t.Errorf("Subject = %q", e.Subject)
	}
	if !strings.Contains(e.TextBody, "token=abc") || !strings.Contains(e.HTMLBody, "token=abc") {
		t.Error("expected reset link in both bodies")
	}
}

func TestBuildExpiryDigestEmail(t *testing.T) {
	e := BuildExpiryDigestEmail(ExpiryDigestData{
		SiteName: "Larder",
		Sections: []ExpiryDigestSection{
			{Heading: "Expired", Items: []ExpiryDigestItem{{Name: "Milk", When: "expired yesterday", Location: "Refrigerator"}}},
			{Heading: "Within 3 days"},
			{Heading: "Within 7 days", Items: []ExpiryDigestItem{{Name: "<b>Cheese</b>", When: "5 days left", Group: "Home"}}},
		},
	})
	if e.Subject != "Larder: 2 items need attention" {
		t.Errorf("Subject = %q", e.Subject)
	}
	if strings.Contains(e.TextBody, "Within 3 days") {
		t.Error("empty sections should be omitted")
	}
	if !strings.Contains(e.TextBody, "Milk (expired yesterday, refrigerator)") {
		t.Errorf("unexpected text body: %q", e.TextBody)
	}
	if strings.Contains(e.HTMLBody, "<b>Cheese</b>") {
		t.Error("item names must be escaped in HTML")
	}
}

func TestMailer_Send(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 1025, From: "noreply@larder.test", FromName: "Larder"}, zap.NewNop())

	var gotAddr, gotFrom string
	var gotMsg []byte
	var gotAuth smtp.Auth
	m.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotMsg, gotAuth = addr, from, msg, a
		return nil
	}

	err := m.Send(context.Background(), Email{To: "ana@example.com", Subject: "Hi", TextBody: "hello", HTMLBody: "<p>hello</p>"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAddr != "localhost:1025" || gotFrom != "noreply@larder.test" {
		t.Errorf("addr=%q from=%q", gotAddr, gotFrom)
	}
	if gotAuth != nil {
		t.Error("expected no auth without a user")
	}
	msg := string(gotMsg)
	for _, want := range []string{"To: ana@example.com", "multipart/alternative", "text/plain", "text/html"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestMailer_Send_Errors(t *testing.T) {
	m := New(Config{Host: "localhost", Port: 25}, zap.NewNop())

	if err := m.Send(context.Background(), Email{}); err == nil {
		t.Error("expected error for empty recipient")
	}

	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }
	if err := m.Send(context.Background(), Email{To: "a@b.com"}); err == nil {
		t.Error("expected relay error")
	}

	block := make(chan struct{})
	defer close(block)
	m.sendMail = func(string, smtp.Auth, string, []string, []byte) error { <-block; return nil }
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := m.Send(ctx, Email{To: "a@b.com"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}
