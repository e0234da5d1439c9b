// Package mailer sends quote documents to customers over SMTP.
package mailer

import (
	"errors"
	"fmt"
	"io"
	"log"

	"go-sales-crm/internal/config"

	"gopkg.in/gomail.v2"
)

// ErrNotConfigured is returned by Disabled.Send.
var ErrNotConfigured = errors.New("mail is not configured")

// Attachment is an in-memory file sent with a message.
type Attachment struct {
	Name    string
	Content []byte
}

// Message is one outgoing e-mail.
type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

type Mailer interface {
	Send(msg Message) error
}

// SMTP delivers through a gomail dialer.
type SMTP struct {
	from   string
	dialer *gomail.Dialer
}

// New returns an SMTP mailer, or Disabled when SMTP_HOST is unset.
func New(cfg config.Config) Mailer {
	if !cfg.MailEnabled() {
		return Disabled{}
	}
	return &SMTP{
		from:   cfg.SMTPFrom,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

func (s *SMTP) Send(msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("message has no recipients")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTMLBody)
	for _, a := range msg.Attachments {
		content := a.Content
		m.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(content)
			return err
		}))
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send mail to %v: %w", msg.To, err)
	}
	log.Printf("✅ Email sent to %v: %s", msg.To, msg.Subject)
	return nil
}

// Disabled refuses every message.
type Disabled struct{}

func (Disabled) Send(Message) error { return ErrNotConfigured }
