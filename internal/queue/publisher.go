package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/domain"
	"bureau-engine/internal/notify"
)

// Publisher publishes notification events to a durable queue. The broker
// connection is opened lazily and re-dialed after it drops.
type Publisher struct {
	url    string
	queue  string
	logger logrus.FieldLogger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, queue string, logger logrus.FieldLogger) *Publisher {
	return &Publisher{url: url, queue: queue, logger: logger}
}

func (p *Publisher) ContactSubmitted(ctx context.Context, contact domain.Contact) error {
	return p.publish(ctx, EventContactSubmitted, newContactSubmittedEvent(contact))
}

func (p *Publisher) ProjectCreated(ctx context.Context, project domain.Project) error {
	return p.publish(ctx, EventProjectCreated, newProjectCreatedEvent(project))
}

func (p *Publisher) publish(ctx context.Context, eventType string, payload any) error {
	body, err := encodeEnvelope(eventType, payload, time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Type:         eventType,
			Body:         body,
		},
	)
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}

func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := declareQueue(ch, p.queue); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	p.conn, p.ch = conn, ch
	p.logger.Infof("connected to broker, publishing to %s", p.queue)
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func declareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %s: %w", name, err)
	}
	return q, nil
}

var _ notify.Notifier = (*Publisher)(nil)
