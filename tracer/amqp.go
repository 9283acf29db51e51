package tracer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig describes the event exchange.
type AMQPConfig struct {
	URL      string
	Exchange string
	// RoutingPrefix starts every routing key, "civmesh" by default.
	RoutingPrefix string
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes every event as JSON with the routing key
// <prefix>.<agent>.<kind>.
type AMQPSink struct {
	pub      publisher
	exchange string
	prefix   string
	close    func() error
}

// NewAMQPSink dials the broker and declares a durable topic exchange.
func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("amqp url must not be empty")
	}
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = "civmesh.events"
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	s := newAMQPSink(ch, exchange, cfg.RoutingPrefix)
	s.close = func() error {
		return errors.Join(ch.Close(), conn.Close())
	}
	return s, nil
}

func newAMQPSink(pub publisher, exchange, prefix string) *AMQPSink {
	if prefix == "" {
		prefix = "civmesh"
	}
	return &AMQPSink{pub: pub, exchange: exchange, prefix: prefix}
}

// RoutingKey returns the key ev is published with.
func (s *AMQPSink) RoutingKey(ev Event) string {
	return s.prefix + "." + ev.Agent + "." + string(ev.Kind)
}

// Handle implements Sink.
func (s *AMQPSink) Handle(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.pub.PublishWithContext(ctx, s.exchange, s.RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Timestamp,
		Type:         string(ev.Kind),
		Body:         body,
	})
}

// Close releases the channel and connection.
func (s *AMQPSink) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
