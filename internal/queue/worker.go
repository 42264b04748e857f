package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/alnah/go-narrate/internal/job"
)

// JobRunner runs a single job request.
type JobRunner interface {
	Run(ctx context.Context, req job.Request) job.Result
}

// Publisher sends a message to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg amqp.Publishing) error
}

// Worker turns deliveries into job runs and publishes their results.
type Worker struct {
	runner      JobRunner
	pub         Publisher
	resultQueue string
	logger      *slog.Logger
}

// NewWorker creates a Worker publishing to resultQueue unless a delivery
// names its own ReplyTo.
func NewWorker(runner JobRunner, pub Publisher, resultQueue string, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{runner: runner, pub: pub, resultQueue: resultQueue, logger: logger}
}

// Consume handles deliveries one at a time until ctx is canceled or the
// channel closes.
func (w *Worker) Consume(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	w.logger.Info("waiting for jobs")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := w.Handle(ctx, d); err != nil && ctx.Err() == nil {
				w.logger.Error("delivery failed",
					slog.String("message_id", d.MessageId),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Handle processes one delivery. Undecodable messages are rejected without
// requeue. A result that cannot be published is requeued once. A job cut
// short by ctx is requeued and no result is published.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) error {
	req, err := job.DecodeEvent(d.Body)
	if err != nil {
		_ = d.Nack(false, false)
		return err
	}

	w.logger.Info("job received",
		slog.String("correlation_id", d.CorrelationId),
		slog.Int("prompts", len(req.Prompts)),
	)
	res := w.runner.Run(ctx, req)
	if err := ctx.Err(); err != nil {
		_ = d.Nack(false, true)
		w.logger.Warn("job interrupted, requeued",
			slog.String("correlation_id", d.CorrelationId),
		)
		return err
	}

	body, err := json.Marshal(res)
	if err != nil {
		_ = d.Nack(false, false)
		return fmt.Errorf("encode result: %w", err)
	}

	dest := d.ReplyTo
	if dest == "" {
		dest = w.resultQueue
	}
	msg := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: d.CorrelationId,
		Body:          body,
	}
	if err := w.pub.Publish(ctx, dest, msg); err != nil {
		_ = d.Nack(false, !d.Redelivered)
		return err
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	w.logger.Info("job result published",
		slog.String("queue", dest),
		slog.Bool("failed", res.Failed()),
	)
	return nil
}
