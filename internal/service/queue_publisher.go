// Package service holds adapters between the booking engine and outside
// infrastructure.
package service

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/flight-seat-inventory/internal/queue"
)

// QueuePublisher publishes booking events to RabbitMQ, one short-lived
// connection per message. Errors are logged and returned; callers are
// free to ignore them.
type QueuePublisher struct {
	url         string
	dialTimeout time.Duration
	log         logrus.FieldLogger
}

func NewQueuePublisher(url string, log logrus.FieldLogger) *QueuePublisher {
	return &QueuePublisher{url: url, dialTimeout: 3 * time.Second, log: log.WithField("component", "rabbitmq")}
}

func (p *QueuePublisher) PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error {
	return p.publish(ctx, queue.BookingConfirmedQueue, ev)
}

func (p *QueuePublisher) PublishBookingCancelled(ctx context.Context, ev queue.BookingCancelledEvent) error {
	return p.publish(ctx, queue.BookingCancelledQueue, ev)
}

func (p *QueuePublisher) publish(ctx context.Context, queueName string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).Error("marshal event failed")
		return err
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(p.dialTimeout)})
	if err != nil {
		p.log.WithError(err).Warn("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.log.WithError(err).WithField("queue", queueName).Warn("queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	// default exchange, routing key = queue name
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.log.WithError(err).WithField("queue", queueName).Warn("publish failed")
		return err
	}
	return nil
}
