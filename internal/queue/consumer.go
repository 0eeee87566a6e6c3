package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"bureau-engine/internal/notify"
)

// Consumer delivers queued notification events to a Notifier.
type Consumer struct {
	url      string
	queue    string
	handler  notify.Notifier
	logger   logrus.FieldLogger
	prefetch int
}

func NewConsumer(url, queue string, handler notify.Notifier, logger logrus.FieldLogger) *Consumer {
	return &Consumer{
		url:      url,
		queue:    queue,
		handler:  handler,
		logger:   logger,
		prefetch: 10,
	}
}

// Run consumes until ctx is cancelled, reconnecting with exponential backoff
// whenever the broker connection is lost.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warnf("notification consumer: dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warnf("notification consumer: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.logger.Warnf("notification consumer: set qos: %v", err)
	}
	if _, err := declareQueue(ch, c.queue); err != nil {
		return err
	}

	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	c.logger.Infof("notification consumer listening on %s", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				c.logger.Errorf("notification consumer: handle message: %v", err)
				_ = d.Nack(false, false) // no requeue, avoids hot loops on poison messages
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one envelope and dispatches it.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case EventContactSubmitted:
		var ev ContactSubmittedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return c.handler.ContactSubmitted(ctx, ev.contact())
	case EventProjectCreated:
		var ev ProjectCreatedEvent
		if err := json.Unmarshal(env.Payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return c.handler.ProjectCreated(ctx, ev.project())
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
