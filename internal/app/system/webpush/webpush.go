// Package webpush delivers browser push notifications signed with VAPID keys.
package webpush

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/dalemusser/larder/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrGone means the push service no longer accepts the subscription
// (HTTP 404 or 410). Callers should delete it.
var ErrGone = errors.New("push subscription expired")

// ErrDisabled is returned when no VAPID keys are configured.
var ErrDisabled = errors.New("web push is not configured")

// Message is the JSON payload the service worker receives.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Tag   string `json:"tag,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Config holds VAPID settings. Subscriber is a mailto: or https: contact.
type Config struct {
	PublicKey  string
	PrivateKey string
	Subscriber string
	TTL        int     // seconds the push service may hold the message
	RatePerSec float64 // outbound sends per second across all subscriptions
}

// Pusher sends push messages.
type Pusher struct {
	cfg     Config
	limiter *rate.Limiter
	log     *zap.Logger

	send func(ctx context.Context, msg []byte, s *webpush.Subscription, o *webpush.Options) (*http.Response, error)
}

// New creates a Pusher. Missing keys yield a Pusher whose Send returns
// ErrDisabled.
func New(cfg Config, logger *zap.Logger) *Pusher {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * 60 * 60
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 20
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}
	return &Pusher{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		log:     logger,
		send:    webpush.SendNotificationWithContext,
	}
}

// Enabled reports whether VAPID keys are configured.
func (p *Pusher) Enabled() bool {
	return p.cfg.PublicKey != "" && p.cfg.PrivateKey != ""
}

// PublicKey returns the VAPID application server key for browsers.
func (p *Pusher) PublicKey() string {
	return p.cfg.PublicKey
}

// Send delivers msg to one subscription, waiting for the outbound rate
// limit. It returns ErrGone when the subscription should be removed.
func (p *Pusher) Send(ctx context.Context, sub models.PushSubscription, msg Message) error {
	if !p.Enabled() {
		return ErrDisabled
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := p.send(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys:     webpush.Keys{Auth: sub.Auth, P256dh: sub.P256dh},
	}, &webpush.Options{
		Subscriber:      p.cfg.Subscriber,
		VAPIDPublicKey:  p.cfg.PublicKey,
		VAPIDPrivateKey: p.cfg.PrivateKey,
		TTL:             p.cfg.TTL,
		Topic:           topic(msg.Tag),
		Urgency:         webpush.UrgencyNormal,
	})
	if err != nil {
		return fmt.Errorf("push send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return ErrGone
	case resp.StatusCode >= 400:
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}
	return nil
}

// topic maps a tag to a Topic header value so a newer message with the same
// tag replaces an undelivered older one. Topics are limited to 32 URL-safe
// characters.
func topic(tag string) string {
	var b strings.Builder
	for _, r := range tag {
		if b.Len() == 32 {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}
