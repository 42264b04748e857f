// Package queue runs narration jobs from RabbitMQ.
package queue

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Default queue names.
const (
	DefaultJobQueue    = "narrate.jobs"
	DefaultResultQueue = "narrate.results"
)

// RabbitMQ holds one connection and channel used to consume job requests
// and publish results.
type RabbitMQ struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	jobQueue string
}

// Dial connects to amqpURL and declares the durable job and result queues.
// The channel prefetches one message at a time.
func Dial(amqpURL, jobQueue, resultQueue string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("cannot open channel: %w", err)
	}

	for _, q := range []string{jobQueue, resultQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("cannot declare queue %s: %w", q, err)
		}
	}

	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("cannot set QoS: %w", err)
	}

	return &RabbitMQ{conn: conn, ch: ch, jobQueue: jobQueue}, nil
}

// Deliveries starts consuming the job queue with manual acknowledgement.
func (r *RabbitMQ) Deliveries() (<-chan amqp.Delivery, error) {
	d, err := r.ch.Consume(r.jobQueue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot consume %s: %w", r.jobQueue, err)
	}
	return d, nil
}

// Publish sends msg to queue through the default exchange.
func (r *RabbitMQ) Publish(ctx context.Context, queue string, msg amqp.Publishing) error {
	if err := r.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		return fmt.Errorf("cannot publish to %s: %w", queue, err)
	}
	return nil
}

// Close closes the channel and the connection.
func (r *RabbitMQ) Close() error {
	var firstErr error
	if r.ch != nil {
		if err := r.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var _ Publisher = (*RabbitMQ)(nil)
