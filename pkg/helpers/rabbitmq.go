package helpers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// defaultDialTimeout bounds a dial when the caller's context has no deadline.
const defaultDialTimeout = 30 * time.Second

// RabbitQueue wraps an AMQP channel bound to one durable queue. The API
// publishes advisories through it and the notify worker consumes them. A
// closed or missing channel is redialed on the next publish.
type RabbitQueue struct {
	url   string
	Queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewRabbitQueue dials immediately and fails when the broker is unreachable.
func NewRabbitQueue(url, queue string) (*RabbitQueue, error) {
	q := NewLazyRabbitQueue(url, queue)
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.dialLocked(defaultDialTimeout); err != nil {
		return nil, err
	}
	return q, nil
}

// NewLazyRabbitQueue returns a queue that connects on first publish.
func NewLazyRabbitQueue(url, queue string) *RabbitQueue {
	return &RabbitQueue{url: url, Queue: queue}
}

func (q *RabbitQueue) dialLocked(timeout time.Duration) error {
	conn, err := amqp.DialConfig(q.url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	_, err = ch.QueueDeclare(
		q.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	q.conn, q.ch = conn, ch
	return nil
}

func (q *RabbitQueue) closeLocked() {
	if q.ch != nil {
		_ = q.ch.Close()
	}
	if q.conn != nil {
		_ = q.conn.Close()
	}
	q.conn, q.ch = nil, nil
}

// channel returns a live channel, redialing within ctx's deadline if needed.
func (q *RabbitQueue) channel(ctx context.Context) (*amqp.Channel, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.ch != nil && !q.ch.IsClosed() {
		return q.ch, nil
	}
	q.closeLocked()
	timeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	if err := q.dialLocked(timeout); err != nil {
		return nil, fmt.Errorf("redial rabbitmq: %w", err)
	}
	return q.ch, nil
}

func (q *RabbitQueue) Close() {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closeLocked()
}

// PublishJSON publishes a JSON-encoded persistent message to the queue.
func (q *RabbitQueue) PublishJSON(ctx context.Context, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	ch, err := q.channel(ctx)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx,
		"",      // default exchange
		q.Queue, // routing key = queue
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         b,
		},
	)
}

// Consume starts a manual-ack consumer with the given prefetch.
func (q *RabbitQueue) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	ch, err := q.channel(context.Background())
	if err != nil {
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	return ch.Consume(q.Queue, "", false, false, false, false, nil)
}
