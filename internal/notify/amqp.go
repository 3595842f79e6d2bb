package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPDispatcher publishes notifications to a topic exchange, routed by audience,
// for the e-mail/push workers that live outside this service.
type AMQPDispatcher struct {
	ch       publisher
	closer   func() error
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPDispatcher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPDispatcher{
		ch:       ch,
		exchange: exchange,
		closer: func() error {
			_ = ch.Close()
			return conn.Close()
		},
	}, nil
}

func (a *AMQPDispatcher) Dispatch(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return a.ch.PublishWithContext(ctx, a.exchange, routingKey(n.TargetAudience), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

func (a *AMQPDispatcher) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// routingKey turns "user:42" into "notification.user.42".
func routingKey(audience string) string {
	key := []byte("notification." + audience)
	for i, b := range key {
		if b == ':' {
			key[i] = '.'
		}
	}
	return string(key)
}
