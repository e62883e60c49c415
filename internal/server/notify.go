package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tableside/internal/common/config"
	"tableside/internal/domain"
)

// Bridge mirrors every order event onto a RabbitMQ fanout exchange so
// subscribers outside the HTTP stream (display boards, notifiers) see the
// same feed.
type Bridge struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialBridge(cfg config.MQ) (*Bridge, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Pass, cfg.Host, cfg.Port)
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &Bridge{conn: conn, ch: ch, exchange: cfg.Exchange}, nil
}

func (b *Bridge) Publish(ctx context.Context, ev domain.StreamEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.ch.PublishWithContext(ctx, b.exchange, "", false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (b *Bridge) Close() {
	if b == nil {
		return
	}
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		_ = b.conn.Close()
	}
}
