// Package mailer delivers transactional mail (reset codes) over SMTP, through
// a message broker, or into the log for development.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

var ErrInvalidMessage = errors.New("mailer: invalid message")

// Message is a plain-text mail. Kind names the template a downstream
// notification service should render (e.g. "vault.mail.reset"); Data carries its
// variables.
type Message struct {
	To      string            `json:"to"`
	Subject string            `json:"subject"`
	Body    string            `json:"body"`
	Kind    string            `json:"kind,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
}

// Sender delivers a message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Checker is implemented by senders that can report whether they are able to
// deliver right now.
type Checker interface {
	Check(ctx context.Context) error
}

// Validate rejects messages with an unparseable recipient or header injection.
func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient: %v", ErrInvalidMessage, err)
	}
	if strings.ContainsAny(m.To+m.Subject, "\r\n") {
		return fmt.Errorf("%w: header contains a line break", ErrInvalidMessage)
	}
	if m.Body == "" {
		return fmt.Errorf("%w: empty body", ErrInvalidMessage)
	}
	return nil
}
