package outbound

import (
	"fmt"

	mail "github.com/go-mail/mail/v2"
)

type Mailer struct {
	dialer *mail.Dialer
	from   string
}

func NewMailer(host string, port int, user, pass, from string) *Mailer {
	return &Mailer{dialer: mail.NewDialer(host, port, user, pass), from: from}
}

func (m *Mailer) Send(to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if m.from == "" {
		return fmt.Errorf("smtp not configured")
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)
	return m.dialer.DialAndSend(msg)
}
