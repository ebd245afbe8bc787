package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"messaging-service/internal/models"
)

// Notifier is the fire-and-forget side channel invoked after a mutation
// commits. Implementations must not block the caller and must not report
// failures back to it.
type Notifier interface {
	Notify(userID string, kind models.NotificationKind, payload any)
}

// Sink delivers one event somewhere durable or visible.
type Sink interface {
	Deliver(ctx context.Context, event models.Event) error
}

var ErrDispatcherStopped = errors.New("notification dispatcher stopped")

// Dispatcher queues events in memory and drains them with a fixed pool of
// workers. A full queue drops the event.
type Dispatcher struct {
	sink    Sink
	queue   chan models.Event
	workers int
	timeout time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(sink Sink, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Dispatcher{
		sink:    sink,
		queue:   make(chan models.Event, queueSize),
		workers: workers,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run starts the workers. They exit once Stop closes the queue and it
// drains.
func (d *Dispatcher) Run() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	slog.Info("Notification dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

// Stop refuses new events, then waits for queued ones until ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		slog.Info("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		slog.Warn("Notification dispatcher stop timed out", "pending", len(d.queue))
		return ctx.Err()
	}
}

func (d *Dispatcher) Notify(userID string, kind models.NotificationKind, payload any) {
	event, err := d.newEvent(userID, kind, payload)
	if err != nil {
		slog.Warn("Dropping notification", "user_id", userID, "kind", kind, "error", err)
		return
	}
	if err := d.enqueue(event); err != nil {
		slog.Warn("Dropping notification", "user_id", userID, "kind", kind, "error", err)
	}
}

func (d *Dispatcher) enqueue(event models.Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}
	select {
	case d.queue <- event:
		return nil
	default:
		return errors.New("notification queue full")
	}
}

func (d *Dispatcher) newEvent(userID string, kind models.NotificationKind, payload any) (models.Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return models.Event{}, err
	}
	event := models.Event{
		UserID:     userID,
		Kind:       kind,
		Payload:    data,
		OccurredAt: d.now().UTC(),
	}
	if s, ok := payload.(models.Summarizer); ok {
		event.Title, event.Body = s.Summary()
	}
	return event, nil
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(id, event)
	}
}

func (d *Dispatcher) deliver(worker int, event models.Event) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("Notification sink panicked", "worker", worker, "user_id", event.UserID, "panic", p)
		}
	}()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.sink.Deliver(ctx, event); err != nil {
		slog.Warn("Notification delivery failed", "worker", worker, "user_id", event.UserID, "kind", event.Kind, "error", err)
	}
}

// MultiSink delivers to every sink and joins their errors. One failing sink
// does not stop the rest.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, event models.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BestEffortSink logs delivery failures instead of returning them, for
// sinks whose loss must not trigger a redelivery of the whole event.
type BestEffortSink struct {
	Sink
}

func (b BestEffortSink) Deliver(ctx context.Context, event models.Event) error {
	if err := b.Sink.Deliver(ctx, event); err != nil {
		slog.Warn("Best-effort notification delivery failed", "user_id", event.UserID, "kind", event.Kind, "error", err)
	}
	return nil
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) Notify(string, models.NotificationKind, any) {}
