package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSender hands messages to a notification service by publishing them as
// JSON to a durable topic exchange.
type AMQPSender struct {
	Exchange   string
	RoutingKey string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPSender dials url and declares the exchange.
func NewAMQPSender(url, exchange, routingKey string) (*AMQPSender, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	s := &AMQPSender{Exchange: exchange, RoutingKey: routingKey, conn: conn}
	if err := s.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *AMQPSender) openChannel() error {
	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(s.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("failed to declare exchange %q: %w", s.Exchange, err)
	}
	s.channel = ch
	return nil
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	pub, err := publishing(msg, time.Now())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.channel == nil || s.channel.IsClosed() {
		if err := s.openChannel(); err != nil {
			return err
		}
	}

	if err := s.channel.PublishWithContext(ctx, s.Exchange, s.RoutingKey, false, false, pub); err != nil {
		return fmt.Errorf("failed to publish to %q: %w", s.Exchange, err)
	}
	return nil
}

func publishing(msg Message, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode message: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    now,
		Type:         msg.Kind,
		Body:         body,
	}, nil
}

// Check reports whether the broker connection is still open.
func (s *AMQPSender) Check(context.Context) error {
	if s.conn == nil || s.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	return nil
}

func (s *AMQPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channel != nil {
		_ = s.channel.Close()
	}
	return s.conn.Close()
}
