// internal/app/system/mailer/mailer.go
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Email is a message with a plain-text and an HTML alternative.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Sender delivers an email.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// Mailer sends mail through an SMTP relay.
type Mailer struct {
	cfg Config
	log *zap.Logger

	// sendMail is smtp.SendMail; tests replace it.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// New creates a Mailer. Auth is used only when a user is configured.
func New(cfg Config, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: logger, sendMail: smtp.SendMail}
}

// Send delivers e. The context bounds the whole SMTP exchange.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if e.To == "" {
		return errors.New("mailer: recipient is empty")
	}
	msg, err := m.build(e)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- m.sendMail(addr, auth, m.cfg.From, []string{e.To}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			m.log.Warn("email send failed", zap.String("to", e.To), zap.Error(err))
			return fmt.Errorf("send mail: %w", err)
		}
		m.log.Debug("email sent", zap.String("to", e.To), zap.String("subject", e.Subject))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mailer) build(e Email) ([]byte, error) {
	var buf bytes.Buffer
	from := mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}

	mw := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "From: %s\r\n", from.String())
	fmt.Fprintf(&buf, "To: %s\r\n", e.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())

	for _, part := range []struct {
		ctype string
		body  string
	}{
		{"text/plain; charset=utf-8", e.TextBody},
		{"text/html; charset=utf-8", e.HTMLBody},
	} {
		if part.body == "" {
			continue
		}
		h := textproto.MIMEHeader{}
		h.Set("Content-Type", part.ctype)
		h.Set("Content-Transfer-Encoding", "quoted-printable")
		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, err
		}
		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
