package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ticketWriter holds what every ticket mutation needs: read, version check,
// write, audit entry and event. The write and its audit entry commit together.
type ticketWriter struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	policy     domain.ResolvedAtPolicy
	now        func() time.Time
}

func newTicketWriter(tickets repository.TicketRepository, history repository.TicketHistoryRepository, tx repository.Transactor,
	dispatcher events.Dispatcher, logger *zap.Logger, policy domain.ResolvedAtPolicy, clock func() time.Time) *ticketWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}
	if policy == "" {
		policy = domain.ResolvedAtRetain
	}
	return &ticketWriter{
		tickets:    tickets,
		history:    history,
		tx:         tx,
		dispatcher: dispatcher,
		logger:     logger,
		policy:     policy,
		now:        clock,
	}
}

func (w *ticketWriter) load(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := w.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return ticket, nil
}

// checkVersion rejects a write based on a read older than the stored row.
func checkVersion(ticket *domain.Ticket, expected *int) error {
	if expected == nil || *expected == ticket.Version {
		return nil
	}
	return apperrors.NewConflict("ticket was modified by someone else, reload and retry", map[string]any{
		"id":               ticket.ID,
		"expected_version": *expected,
		"current_version":  ticket.Version,
	})
}

func (w *ticketWriter) save(ctx context.Context, ticket *domain.Ticket) error {
	return storeError(w.tickets.Update(ctx, ticket), "ticket", ticket.ID)
}

// commit saves ticket and appends its audit entry in one unit of work.
func (w *ticketWriter) commit(ctx context.Context, actor domain.Actor, ticket *domain.Ticket, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	return repository.RunInTx(ctx, w.tx, func(ctx context.Context) error {
		if err := w.save(ctx, ticket); err != nil {
			return err
		}
		return w.record(ctx, actor, ticket.ID, change, oldValue, newValue)
	})
}

func (w *ticketWriter) record(ctx context.Context, actor domain.Actor, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if w.history == nil {
		return nil
	}
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actor.ID,
		ChangeType:  change,
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   w.now(),
	}
	return storeError(w.history.Create(ctx, entry), "ticket history", ticketID)
}

func (w *ticketWriter) publish(ctx context.Context, actor domain.Actor, eventType events.EventType, ticketID string, payload any) {
	publishEvent(ctx, w.dispatcher, w.logger, events.Event{
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.ActorFrom(actor),
		Timestamp: w.now(),
		Payload:   payload,
	})
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
