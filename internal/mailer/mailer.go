// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned when SMTP settings are missing
var ErrNotConfigured = errors.New("email config missing")

// Sender sends one HTML message
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Config holds SMTP settings
type Config struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPSender sends mail through an SMTP relay
type SMTPSender struct {
	cfg    Config
	dialer *gomail.Dialer
}

// NewSMTPSender creates a sender for cfg
func NewSMTPSender(cfg Config) *SMTPSender {
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass),
	}
}

// Send delivers the message or returns why it could not
func (s *SMTPSender) Send(ctx context.Context, to, subject, html string) error {
	if s.cfg.Host == "" || s.cfg.From == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("empty recipient")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	logrus.WithField("to", to).Info("email sent")
	return nil
}

// ResetPasswordSubject is the subject line of the reset email
const ResetPasswordSubject = "Password Reset Request - Wallo SecureGate"

// ResetPasswordHTML renders the reset email body for resetURL
func ResetPasswordHTML(resetURL string) string {
	return fmt.Sprintf(`<h1>Password Reset Request</h1>
<p>You requested a password reset for your Wallo SecureGate account.</p>
<p>Please click the link below to reset your password. This link is valid for 15 minutes:</p>
<a href="%[1]s" clicktracking=off>%[1]s</a>
<p>If you did not request this, please ignore this email.</p>`, resetURL)
}
