package mail

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"
)

const (
	verificationSubject = "Verify your email for MathLovers"
	verificationTag     = "email-verification"
)

var verificationHTML = htmltemplate.Must(htmltemplate.New("verification").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>Welcome to MathLovers, {{.Username}}!</h2>
  <p>Please confirm your email address by clicking the link below.</p>
  <p><a href="{{.Link}}">Verify email</a></p>
  <p>If you did not create an account, you can ignore this email.</p>
</body>
</html>`))

var verificationText = texttemplate.Must(texttemplate.New("verification").Parse(`Welcome to MathLovers, {{.Username}}!

Please confirm your email address by opening the link below:
{{.Link}}

If you did not create an account, you can ignore this email.
`))

// VerificationMailer はメール確認リンクを組み立てて送信する。
type VerificationMailer struct {
	sender Sender
}

// NewVerificationMailer はVerificationMailerを生成する。
func NewVerificationMailer(sender Sender) *VerificationMailer {
	return &VerificationMailer{sender: sender}
}

// SendVerification は確認リンクを含むメールを送信する。
func (m *VerificationMailer) SendVerification(ctx context.Context, to, username, link string) error {
	data := struct {
		Username string
		Link     string
	}{Username: username, Link: link}

	var html, text bytes.Buffer
	if err := verificationHTML.Execute(&html, data); err != nil {
		return fmt.Errorf("failed to render verification html: %w", err)
	}
	if err := verificationText.Execute(&text, data); err != nil {
		return fmt.Errorf("failed to render verification text: %w", err)
	}

	return m.sender.Send(ctx, Message{
		To:       to,
		Subject:  verificationSubject,
		HTMLBody: html.String(),
		TextBody: text.String(),
		Tag:      verificationTag,
	})
}
