// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// PasswordResetData holds data for the password reset email.
type PasswordResetData struct {
	SiteName  string
	ResetLink string
	ExpiresIn string // e.g., "1 hour"
}

// BuildPasswordResetEmail creates a password reset email with both bodies.
func BuildPasswordResetEmail(data PasswordResetData) Email {
	var text bytes.Buffer
	fmt.Fprintf(&text, "Someone asked to reset the password for your %s account.\n\n", data.SiteName)
	text.WriteString("Open this link to choose a new password:\n")
	text.WriteString(data.ResetLink + "\n\n")
	fmt.Fprintf(&text, "The link expires in %s.\n\n", data.ExpiresIn)
	text.WriteString("If you did not ask for this, you can ignore this email.\n")

	return Email{
		Subject:  fmt.Sprintf("Reset your %s password", data.SiteName),
		TextBody: text.String(),
		HTMLBody: render(passwordResetTmpl, data),
	}
}

// ExpiryDigestSection is one status group in an expiry digest.
type ExpiryDigestSection struct {
	Heading string
	Items   []ExpiryDigestItem
}

// ExpiryDigestItem is one food item line in an expiry digest.
type ExpiryDigestItem struct {
	Name     string
	Group    string
	When     string // "expires today", "2 days left"
	Location string
}

// ExpiryDigestData holds data for the daily expiry email.
type ExpiryDigestData struct {
	SiteName string
	AppLink  string
	Sections []ExpiryDigestSection
}

// BuildExpiryDigestEmail creates the daily expiry email.
func BuildExpiryDigestEmail(data ExpiryDigestData) Email {
	var text bytes.Buffer
	total := 0
	for _, s := range data.Sections {
		if len(s.Items) == 0 {
			continue
		}
		text.WriteString(s.Heading + "\n")
		for _, it := range s.Items {
			total++
			line := "  - " + it.Name + " (" + it.When
			if it.Location != "" {
				line += ", " + strings.ToLower(it.Location)
			}
			if it.Group != "" {
				line += ", " + it.Group
			}
			text.WriteString(line + ")\n")
		}
		text.WriteString("\n")
	}
	if data.AppLink != "" {
		text.WriteString("Open " + data.SiteName + ": " + data.AppLink + "\n")
	}

	noun := "items"
	if total == 1 {
		noun = "item"
	}
	return Email{
		Subject:  fmt.Sprintf("%s: %d %s need attention", data.SiteName, total, noun),
		TextBody: text.String(),
		HTMLBody: render(expiryDigestTmpl, data),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

var passwordResetTmpl = template.Must(template.New("reset").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Reset your password</title></head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;background-color:#f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color:#f3f4f6;">
    <tr>
      <td align="center" style="padding:40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width:480px;background-color:#ffffff;border-radius:8px;">
          <tr>
            <td style="padding:32px 32px 24px;text-align:center;border-bottom:1px solid #e5e7eb;">
              <h1 style="margin:0;font-size:24px;font-weight:600;color:#15803d;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding:32px;">
              <p style="margin:0 0 24px;font-size:16px;color:#374151;">Someone asked to reset your password.</p>
              <p style="text-align:center;margin:0 0 24px;">
                <a href="{{.ResetLink}}" style="display:inline-block;padding:12px 32px;background-color:#15803d;color:#ffffff;text-decoration:none;border-radius:6px;">Choose a new password</a>
              </p>
              <p style="margin:0;font-size:14px;color:#6b7280;">The link expires in {{.ExpiresIn}}. If you did not ask for this, you can ignore this email.</p>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))

var expiryDigestTmpl = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Expiring food</title></head>
<body style="margin:0;padding:0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;background-color:#f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color:#f3f4f6;">
    <tr>
      <td align="center" style="padding:40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width:520px;background-color:#ffffff;border-radius:8px;">
          <tr>
            <td style="padding:32px 32px 16px;border-bottom:1px solid #e5e7eb;">
              <h1 style="margin:0;font-size:22px;font-weight:600;color:#15803d;">{{.SiteName}}</h1>
            </td>
          </tr>
          {{range .Sections}}{{if .Items}}
          <tr>
            <td style="padding:24px 32px 0;">
              <h2 style="margin:0 0 8px;font-size:16px;color:#111827;">{{.Heading}}</h2>
              <ul style="margin:0;padding-left:20px;color:#374151;font-size:14px;">
                {{range .Items}}<li>{{.Name}} <span style="color:#6b7280;">({{.When}}{{if .Location}}, {{.Location}}{{end}}{{if .Group}}, {{.Group}}{{end}})</span></li>{{end}}
              </ul>
            </td>
          </tr>
          {{end}}{{end}}
          {{if .AppLink}}
          <tr>
            <td style="padding:24px 32px 32px;text-align:center;">
              <a href="{{.AppLink}}" style="display:inline-block;padding:10px 28px;background-color:#15803d;color:#ffffff;text-decoration:none;border-radius:6px;">Open {{.SiteName}}</a>
            </td>
          </tr>
          {{end}}
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`))
