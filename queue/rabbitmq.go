package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	amqpExchange       = "accounts.notifications"
	amqpPublishTimeout = 30 * time.Second
)

// AMQPBroker is the durable Broker implementation backed by RabbitMQ. One
// durable queue per job kind, persistent deliveries, manual acknowledgment
// with requeue on handler failure.
type AMQPBroker struct {
	conn   *amqp.Connection
	logger Logger
	mu     sync.Mutex
}

var _ Broker = (*AMQPBroker)(nil)

// NewAMQPBroker wraps an open AMQP connection.
func NewAMQPBroker(conn *amqp.Connection, logger Logger) *AMQPBroker {
	if logger == nil {
		logger = nopLogger{}
	}
	return &AMQPBroker{conn: conn, logger: logger}
}

// IsConnected checks if the underlying connection is usable.
func (b *AMQPBroker) IsConnected() bool {
	return b.conn != nil && !b.conn.IsClosed()
}

// Publish sends the job to its kind's durable queue and waits for the
// broker's publish confirmation.
func (b *AMQPBroker) Publish(ctx context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.IsConnected() {
		return errors.New("amqp connection is not available", errors.CategoryOperation)
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to open channel")
	}
	defer func() { _ = ch.Close() }()

	if err := b.ensureQueue(ch, job.Kind); err != nil {
		return err
	}

	if err := ch.Confirm(false); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to put channel in confirm mode")
	}

	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	body, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to encode job")
	}

	pubCtx, cancel := context.WithTimeout(ctx, amqpPublishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		pubCtx,
		amqpExchange,
		queueName(job.Kind),
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to publish job")
	}

	select {
	case confirmed, ok := <-confirms:
		if !ok {
			return errors.New("confirmation channel closed", errors.CategoryOperation)
		}
		if !confirmed.Ack {
			return errors.New("broker did not acknowledge publish", errors.CategoryOperation)
		}
		return nil
	case <-pubCtx.Done():
		return errors.Wrap(pubCtx.Err(), errors.CategoryOperation, "publish confirmation timed out")
	}
}

// Consume delivers jobs of the given kind until ctx is done. Handler errors
// nack the delivery back onto the queue; undecodable payloads are dropped.
func (b *AMQPBroker) Consume(ctx context.Context, kind Kind, handler Handler) error {
	if !kind.IsValid() {
		return errors.New("unknown job kind", errors.CategoryBadInput).
			WithMetadata(map[string]any{"kind": string(kind)})
	}

	if !b.IsConnected() {
		return errors.New("amqp connection is not available", errors.CategoryOperation)
	}

	ch, err := b.conn.Channel()
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to open channel")
	}
	defer func() { _ = ch.Close() }()

	if err := b.ensureQueue(ch, kind); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		queueName(kind),
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to start consumer")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed", errors.CategoryOperation)
			}

			var job Job
			if err := json.Unmarshal(d.Body, &job); err != nil {
				b.logger.Error("amqp consumer dropping undecodable job", "kind", kind, "error", err)
				_ = d.Nack(false, false)
				continue
			}

			if err := handler(ctx, job); err != nil {
				b.logger.Warn("amqp handler failed, requeueing job", "kind", kind, "error", err)
				_ = d.Nack(false, true)
				continue
			}

			_ = d.Ack(false)
		}
	}
}

// Close closes the underlying connection.
func (b *AMQPBroker) Close() error {
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Close()
}

func (b *AMQPBroker) ensureQueue(ch *amqp.Channel, kind Kind) error {
	err := ch.ExchangeDeclare(
		amqpExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to declare exchange")
	}

	name := queueName(kind)

	q, err := ch.QueueDeclare(
		name,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to declare queue")
	}

	if err := ch.QueueBind(q.Name, name, amqpExchange, false, nil); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to bind queue")
	}

	return nil
}

func queueName(kind Kind) string {
	return fmt.Sprintf("accounts.notify.%s", kind)
}
