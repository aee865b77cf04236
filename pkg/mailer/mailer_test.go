package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

func validMessage() Message {
	return Message{
		To:      "user@example.com",
		Subject: "Your reset code",
		Body:    "code: 123",
		Kind:    "vault.reset",
		Data:    map[string]string{"method": "pin"},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validMessage().Validate())

	bad := validMessage()
	bad.To = "not an address"
	require.ErrorIs(t, bad.Validate(), ErrInvalidMessage)

	bad = validMessage()
	bad.Subject = "hi\r\nBcc: attacker@example.com"
	require.ErrorIs(t, bad.Validate(), ErrInvalidMessage)

	bad = validMessage()
	bad.Body = ""
	require.ErrorIs(t, bad.Validate(), ErrInvalidMessage)
}

func TestSMTPCompose(t *testing.T) {
	s := &SMTPSender{Host: "smtp.example.com", Port: 587, From: "vault@example.com"}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	out := string(s.compose(validMessage(), now))
	require.True(t, strings.HasPrefix(out, "From: vault@example.com\r\n"))
	require.Contains(t, out, "To: user@example.com\r\n")
	require.Contains(t, out, "Subject: Your reset code\r\n")
	require.Contains(t, out, "Date: "+now.Format(time.RFC1123Z)+"\r\n")
	require.True(t, strings.HasSuffix(out, "\r\n\r\ncode: 123"))
	require.Equal(t, "smtp.example.com:587", s.addr())
}

func TestSMTPSendRejectsInvalidBeforeDialing(t *testing.T) {
	s := &SMTPSender{Host: "127.0.0.1", Port: 1}
	err := s.Send(context.Background(), Message{To: "nope"})
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestAMQPPublishing(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	pub, err := publishing(validMessage(), now)
	require.NoError(t, err)

	require.Equal(t, "application/json", pub.ContentType)
	require.Equal(t, amqp.Persistent, pub.DeliveryMode)
	require.Equal(t, "vault.reset", pub.Type)
	require.Equal(t, now, pub.Timestamp)

	var decoded Message
	require.NoError(t, json.Unmarshal(pub.Body, &decoded))
	require.Equal(t, validMessage(), decoded)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := &LogSender{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}

	require.NoError(t, s.Send(context.Background(), validMessage()))
	require.Contains(t, buf.String(), `"to":"user@example.com"`)
	require.Contains(t, buf.String(), `"kind":"vault.reset"`)

	require.ErrorIs(t, s.Send(context.Background(), Message{}), ErrInvalidMessage)
}
