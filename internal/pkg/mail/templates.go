package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const verifySubscriptionTpl = `<!DOCTYPE html>
<html>
<body style="font-family:sans-serif;background:#f5f5f5;padding:20px">
<div style="max-width:600px;margin:0 auto;background:#fff;border-radius:8px;padding:24px">
  <h2 style="color:#333">Confirm your subscription</h2>
  <p>Thanks for subscribing to {{.SiteTitle}}! Click the button below to verify your email address:</p>
  <p style="margin-top:24px">
    <a href="{{.VerifyURL}}" style="background:#4f46e5;color:#fff;padding:8px 16px;text-decoration:none;border-radius:4px">Verify email</a>
  </p>
  <p style="color:#999;font-size:12px">If you didn't request this, you can safely ignore this email.</p>
  <p style="font-size:10px;color:#bbb;text-align:center">&copy;{{year}} {{.SiteTitle}}</p>
</div>
</body>
</html>`

// VerifySubscriptionData is the data for subscription confirmation emails.
type VerifySubscriptionData struct {
	VerifyURL string
	SiteTitle string
}

func renderTemplate(tpl string, data interface{}) (string, error) {
	t, err := template.New("").Funcs(template.FuncMap{
		"year": func() int {
			return time.Now().Year()
		},
	}).Parse(tpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SendVerifySubscription sends the confirmation email for the double-opt-in
// path.
func (s *Sender) SendVerifySubscription(ctx context.Context, to string, data VerifySubscriptionData) error {
	if strings.TrimSpace(data.SiteTitle) == "" {
		data.SiteTitle = "Newsbrief"
	}
	html, err := renderTemplate(verifySubscriptionTpl, data)
	if err != nil {
		return err
	}
	return s.Send(ctx, Message{
		To:      []string{to},
		Subject: fmt.Sprintf("[%s] Please confirm your subscription", data.SiteTitle),
		HTML:    html,
	})
}
