package worker

import (
	"context"
	"errors"
	"time"

	"gearbook/internal/events"

	"github.com/rs/zerolog"
)

// AuditSink persists one audit trail entry.
type AuditSink interface {
	AppendAudit(ctx context.Context, eventType string, payload []byte, at time.Time) error
}

type auditTask struct {
	eventType string
	payload   []byte
	createdAt time.Time
}

// AuditWorker drains reservation events off the in-process bus and writes
// them to the audit trail asynchronously, so the booking path never blocks
// on audit I/O. Failed writes are retried with backoff and dropped after
// MaxRetries.
type AuditWorker struct {
	sink        AuditSink
	retryPolicy RetryPolicy
	queue       chan auditTask
	logger      *zerolog.Logger
}

var errQueueFull = errors.New("audit queue is full")

// NewAuditWorker builds a worker with sane defaults.
func NewAuditWorker(sink AuditSink, retry RetryPolicy, logger *zerolog.Logger) *AuditWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &AuditWorker{
		sink:        sink,
		retryPolicy: retry,
		queue:       make(chan auditTask, 128),
		logger:      logger,
	}
}

// SubscribeAll registers the worker for every reservation event type.
func (w *AuditWorker) SubscribeAll(bus *events.EventBus) {
	types := []string{
		events.EventReservationRequested,
		events.EventReservationApproved,
		events.EventReservationDenied,
		events.EventEquipmentCheckedOut,
		events.EventEquipmentCheckedIn,
	}
	for _, t := range types {
		bus.Subscribe(t, w.enqueue)
	}
}

func (w *AuditWorker) enqueue(event *events.Event) error {
	task := auditTask{
		eventType: event.Type,
		payload:   event.Payload,
		createdAt: event.CreatedAt,
	}
	select {
	case w.queue <- task:
		return nil
	default:
		w.logger.Warn().Str("event_type", event.Type).Msg("audit queue full, dropping event")
		return errQueueFull
	}
}

// Run processes tasks until the context is cancelled.
func (w *AuditWorker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-w.queue:
			w.process(ctx, task)
		}
	}
}

func (w *AuditWorker) process(ctx context.Context, task auditTask) {
	for attempt := 1; ; attempt++ {
		err := w.sink.AppendAudit(ctx, task.eventType, task.payload, task.createdAt)
		if err == nil {
			return
		}
		if attempt > w.retryPolicy.MaxRetries {
			w.logger.Error().Err(err).
				Str("event_type", task.eventType).
				Int("attempts", attempt).
				Msg("audit write failed, giving up")
			return
		}

		w.logger.Warn().Err(err).
			Str("event_type", task.eventType).
			Int("attempt", attempt).
			Msg("audit write failed, retrying")

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}
}
