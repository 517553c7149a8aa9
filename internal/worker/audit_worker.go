// Package worker hosts the asynchronous audit trail. Lifecycle events are
// queued and written to the store off the request path; audit is best-effort
// on top of the booking rows, which are themselves never deleted.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"slotbook/internal/domain"
	"slotbook/internal/events"
	"slotbook/internal/models"

	"github.com/rs/zerolog"
)

type AuditWorker struct {
	store  domain.Store
	logger *zerolog.Logger
	queue  chan *models.AuditEntry
	retry  retryPolicy
	wg     sync.WaitGroup
	once   sync.Once
}

func NewAuditWorker(store domain.Store, logger *zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		store:  store,
		logger: logger,
		queue:  make(chan *models.AuditEntry, models.AuditQueueSize),
		retry:  defaultRetryPolicy(),
	}
}

// SubscribeAll wires the worker to every booking lifecycle event on the bus.
func (w *AuditWorker) SubscribeAll(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventBookingCreated,
		events.EventBookingCanceled,
		events.EventBookingRescheduled,
		events.EventBookingNotesUpdated,
	} {
		et := eventType
		bus.Subscribe(et, func(event *events.Event) error {
			return w.enqueueEvent(et, event)
		})
	}
}

func (w *AuditWorker) enqueueEvent(eventType string, event *events.Event) error {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		w.logger.Error().Err(err).Str("event_type", eventType).Msg("audit payload unmarshal failed")
		return err
	}

	entry := &models.AuditEntry{
		BookingID: payload.BookingID,
		EventType: eventType,
		ActorID:   payload.ActorID,
		ActorRole: payload.ActorRole,
		Details:   string(event.Payload),
		CreatedAt: event.CreatedAt,
	}

	select {
	case w.queue <- entry:
	default:
		// Bounded queue; dropping beats blocking the request path.
		w.logger.Warn().Str("booking_id", entry.BookingID).Msg("audit queue full, entry dropped")
	}
	return nil
}

// Start launches the persistence loop. Stop by canceling the context.
func (w *AuditWorker) Start(ctx context.Context) {
	w.once.Do(func() {
		w.wg.Add(1)
		go w.run(ctx)
	})
}

// Wait blocks until the loop has drained after context cancellation.
func (w *AuditWorker) Wait() {
	w.wg.Wait()
}

func (w *AuditWorker) run(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case entry := <-w.queue:
			w.persist(ctx, entry)
		}
	}
}

func (w *AuditWorker) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case entry := <-w.queue:
			w.persist(ctx, entry)
		default:
			return
		}
	}
}

func (w *AuditWorker) persist(ctx context.Context, entry *models.AuditEntry) {
	var err error
	for attempt := 1; attempt <= w.retry.attempts; attempt++ {
		if err = w.store.InsertAuditEntry(ctx, entry); err == nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retry.delay(attempt)):
		}
	}
	w.logger.Error().Err(err).
		Str("booking_id", entry.BookingID).
		Str("event_type", entry.EventType).
		Msg("audit entry dropped after retries")
}
