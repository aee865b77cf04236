package mailer

import (
	"context"
	"log/slog"
)

// LogSender writes messages to the log instead of delivering them. Only for
// development: the body, and therefore any reset code, ends up in the log.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.Logger.InfoContext(ctx, "mail not delivered (log driver)",
		"to", msg.To,
		"subject", msg.Subject,
		"kind", msg.Kind,
		"body", msg.Body,
	)
	return nil
}
