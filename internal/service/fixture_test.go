package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
)

var (
	reporterA   = domain.Actor{ID: "rep-a", Role: domain.RoleReporter}
	reporterB   = domain.Actor{ID: "rep-b", Role: domain.RoleReporter}
	technician1 = domain.Actor{ID: "tech-1", Role: domain.RoleTechnician}
	technician2 = domain.Actor{ID: "tech-2", Role: domain.RoleTechnician}
	admin       = domain.Actor{ID: "admin-1", Role: domain.RoleAdmin}
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

func (c *stepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

type fakeBlobs struct {
	keys []string
	err  error
}

func (f *fakeBlobs) Upload(_ context.Context, key, _ string, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.keys = append(f.keys, key)
	return "https://blobs.example/ticket-photos/" + key, nil
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *memory.Store
	clock    *stepClock
	blobs    *fakeBlobs
	events   *eventLog
	tickets  *TicketService
	assign   *AssignmentService
	comments *CommentService
	profiles *ProfileService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	policy  domain.ResolvedAtPolicy
	strict  bool
	history func(repository.TicketHistoryRepository) repository.TicketHistoryRepository
}

func withPolicy(p domain.ResolvedAtPolicy) fixtureOption {
	return func(c *fixtureConfig) { c.policy = p }
}

func withStrictInternal() fixtureOption {
	return func(c *fixtureConfig) { c.strict = true }
}

// withHistory wraps the history repository the ticket services write to.
func withHistory(wrap func(repository.TicketHistoryRepository) repository.TicketHistoryRepository) fixtureOption {
	return func(c *fixtureConfig) { c.history = wrap }
}

// failingHistory accepts reads and rejects every append while armed.
type failingHistory struct {
	repository.TicketHistoryRepository
	mu    sync.Mutex
	armed bool
}

func (h *failingHistory) set(armed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armed = armed
}

func (h *failingHistory) Create(ctx context.Context, entry *domain.TicketHistory) error {
	h.mu.Lock()
	armed := h.armed
	h.mu.Unlock()
	if armed {
		return errStoreDown
	}
	return h.TicketHistoryRepository.Create(ctx, entry)
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{policy: domain.ResolvedAtRetain}
	for _, opt := range opts {
		opt(&cfg)
	}

	store := memory.New()
	history := repository.TicketHistoryRepository(store.History())
	if cfg.history != nil {
		history = cfg.history(history)
	}
	clock := newStepClock()
	blobs := &fakeBlobs{}
	log := &eventLog{}
	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			log.mu.Lock()
			defer log.mu.Unlock()
			log.events = append(log.events, e)
			return nil
		})
	}

	ctx := context.Background()
	for _, p := range []domain.Profile{
		{ID: reporterA.ID, Email: "a@example.com", FullName: "Reporter A", Role: domain.RoleReporter},
		{ID: reporterB.ID, Email: "b@example.com", FullName: "Reporter B", Role: domain.RoleReporter},
		{ID: technician1.ID, Email: "t1@example.com", FullName: "Tech One", Role: domain.RoleTechnician},
		{ID: technician2.ID, Email: "t2@example.com", FullName: "Tech Two", Role: domain.RoleTechnician},
		{ID: admin.ID, Email: "admin@example.com", FullName: "Admin", Role: domain.RoleAdmin},
	} {
		p := p
		require.NoError(t, store.Profiles().Upsert(ctx, &p))
	}

	return &fixture{
		store:  store,
		clock:  clock,
		blobs:  blobs,
		events: log,
		tickets: NewTicketService(TicketDependencies{
			TicketRepo:       store.Tickets(),
			CommentRepo:      store.Comments(),
			CategoryRepo:     store.Categories(),
			HistoryRepo:      history,
			Transactor:       store.Transactor(),
			BlobStore:        blobs,
			Dispatcher:       dispatcher,
			ResolvedAtPolicy: cfg.policy,
			Clock:            clock.Now,
		}),
		assign: NewAssignmentService(AssignmentDependencies{
			TicketRepo:       store.Tickets(),
			ProfileRepo:      store.Profiles(),
			HistoryRepo:      history,
			Transactor:       store.Transactor(),
			Dispatcher:       dispatcher,
			ResolvedAtPolicy: cfg.policy,
			Clock:            clock.Now,
		}),
		comments: NewCommentService(CommentDependencies{
			TicketRepo:     store.Tickets(),
			CommentRepo:    store.Comments(),
			ProfileRepo:    store.Profiles(),
			Dispatcher:     dispatcher,
			StrictInternal: cfg.strict,
			Clock:          clock.Now,
		}),
		profiles: NewProfileService(store.Profiles(), nil),
	}
}

func (f *fixture) createTicket(t *testing.T, actor domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := f.tickets.CreateTicket(context.Background(), actor, TicketCreateInput{Title: title, Description: "details"})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) assignedTicket(t *testing.T, assignee domain.Actor) *domain.Ticket {
	t.Helper()
	ticket := f.createTicket(t, reporterA, "Printer jam")
	assigned, err := f.assign.AssignTicket(context.Background(), admin, ticket.ID, assignee.ID, nil)
	require.NoError(t, err)
	return assigned
}

var errStoreDown = errors.New("connection refused")
