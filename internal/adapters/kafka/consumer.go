package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"messaging-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// Deliverer is where consumed events end up, normally the store sink.
type Deliverer interface {
	Deliver(ctx context.Context, event models.Event) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Worker consumes notification events and hands them to a Deliverer.
// Offsets are committed only after a successful delivery or for messages
// that can never succeed.
type Worker struct {
	reader     messageReader
	target     Deliverer
	timeout    time.Duration
	retryDelay time.Duration
}

func NewWorker(brokers []string, topic, groupID string, target Deliverer, timeout time.Duration) *Worker {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Worker{reader: reader, target: target, timeout: timeout, retryDelay: time.Second}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	slog.Info("Notification worker started")
	defer func() {
		if err := w.reader.Close(); err != nil {
			slog.Warn("Failed to close kafka reader", "error", err)
		}
	}()

	for {
		msg, err := w.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Notification worker stopped")
				return nil
			}
			slog.Error("Failed to fetch message", "error", err)
			return err
		}

		if !w.deliverWithRetry(ctx, msg) {
			slog.Info("Notification worker stopped")
			return nil
		}

		if err := w.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			slog.Error("Failed to commit offset", "offset", msg.Offset, "error", err)
		}
	}
}

// deliverWithRetry retries the same message until it is handled. It
// returns false only when ctx ends first.
func (w *Worker) deliverWithRetry(ctx context.Context, msg kafka.Message) bool {
	for {
		err := w.handle(ctx, msg)
		if err == nil {
			return true
		}
		slog.Warn("Notification delivery failed, retrying", "offset", msg.Offset, "error", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.retryDelay):
		}
	}
}

var errPoison = errors.New("undecodable notification event")

// handle returns nil for messages that were delivered or must be skipped.
func (w *Worker) handle(ctx context.Context, msg kafka.Message) error {
	var event models.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil || event.UserID == "" {
		slog.Error("Skipping notification event", "offset", msg.Offset, "error", errors.Join(errPoison, err))
		return nil
	}

	dctx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	return w.target.Deliver(dctx, event)
}
