package notification

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPDispatcher delivers notifications over plain SMTP with optional auth
type SMTPDispatcher struct {
	addr     string
	host     string
	username string
	password string
	from     string
}

// NewSMTPDispatcher creates a dispatcher for the given SMTP server address
// (host:port). Username may be empty for unauthenticated relays.
func NewSMTPDispatcher(addr, username, password, from string) *SMTPDispatcher {
	host := addr
	if i := strings.IndexByte(addr, ':'); i >= 0 {
		host = addr[:i]
	}

	return &SMTPDispatcher{
		addr:     addr,
		host:     host,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers a single message. The context is consulted before dialing;
// net/smtp itself does not take a context.
func (d *SMTPDispatcher) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("notification cancelled: %w", err)
	}

	var auth smtp.Auth
	if d.username != "" {
		auth = smtp.PlainAuth("", d.username, d.password, d.host)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		d.from, msg.Recipient, msg.Subject, msg.Body)

	if err := smtp.SendMail(d.addr, auth, d.from, []string{msg.Recipient}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", msg.Recipient, err)
	}

	return nil
}
