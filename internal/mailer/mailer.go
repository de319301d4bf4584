// Package mailer delivers transactional email over SMTP.  Message bodies
// are rendered in both plain text and HTML from small embedded templates.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/go-mail/mail/v2"
)

const productName = "Project Manager"

// Mailer wraps an SMTP dialer and the sender address used on every message.
type Mailer struct {
	dialer *mail.Dialer
	sender string
}

// New builds a Mailer from SMTP settings.
func New(host string, port int, username, password, sender string) *Mailer {
	return &Mailer{
		dialer: mail.NewDialer(host, port, username, password),
		sender: sender,
	}
}

// content is the shape every transactional message shares: a greeting, an
// intro line, one action link and an outro.
type content struct {
	Name        string
	Intro       string
	Instruction string
	ButtonText  string
	Link        string
	Outro       string
	Product     string
}

var htmlTmpl = template.Must(template.New("mail").Parse(`<html><body>
<p>Hi {{.Name}},</p>
<p>{{.Intro}}</p>
<p>{{.Instruction}}</p>
<p><a href="{{.Link}}" style="background:#22BC66;color:#fff;padding:10px 20px;border-radius:4px;text-decoration:none">{{.ButtonText}}</a></p>
<p>{{.Outro}}</p>
<p>{{.Product}}</p>
</body></html>`))

// SendVerificationEmail mails the account confirmation link.
func (m *Mailer) SendVerificationEmail(to, username, link string) error {
	return m.send(to, "Please verify your email", content{
		Name:        username,
		Intro:       "Welcome to our App! We're very excited to have you on board.",
		Instruction: "Please click the following button to verify your account:",
		ButtonText:  "Confirm your account",
		Link:        link,
		Outro:       "Need help, or have questions? Just reply to this email, we'd love to help.",
		Product:     productName,
	})
}

// SendPasswordResetEmail mails the password reset link.
func (m *Mailer) SendPasswordResetEmail(to, username, link string) error {
	return m.send(to, "Password reset request", content{
		Name:        username,
		Intro:       "You have requested to reset your password. Please click the button below to proceed.",
		Instruction: "Click the button below to reset your password:",
		ButtonText:  "Reset your password",
		Link:        link,
		Outro:       "Need help, or have questions? Just reply to this email, we'd love to help.",
		Product:     productName,
	})
}

// send renders and delivers one message.  A single attempt only: retry
// policy for lost mail is deliberately absent, callers log and move on.
func (m *Mailer) send(to, subject string, data content) error {
	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return err
	}
	plain := fmt.Sprintf("Hi %s,\n\n%s\n%s\n\n%s\n\n%s\n\n%s\n",
		data.Name, data.Intro, data.Instruction, data.Link, data.Outro, data.Product)

	msg := mail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plain)
	msg.AddAlternative("text/html", html.String())

	return m.dialer.DialAndSend(msg)
}
