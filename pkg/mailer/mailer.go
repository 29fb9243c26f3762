package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/kioskpe/letslegal-api/pkg/config"
)

// Mailer sends transactional email through an SMTP relay.
type Mailer struct {
	dialer     *gomail.Dialer
	fromEmail  string
	adminEmail string
}

// New constructs a Mailer from SMTP configuration.
func New(cfg config.SMTPConfig) *Mailer {
	return &Mailer{
		dialer:     gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromEmail:  cfg.FromEmail,
		adminEmail: cfg.AdminEmail,
	}
}

// AdminEmail returns the configured operations inbox.
func (m *Mailer) AdminEmail() string {
	return m.adminEmail
}

// Send delivers a single HTML message.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.fromEmail)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}
