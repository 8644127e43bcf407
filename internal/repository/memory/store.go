// Package memory provides process-local implementations of the repository
// interfaces. The service falls back to it when no Postgres DSN is
// configured, and tests use it as their store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Store holds every table behind a single lock.
type Store struct {
	mu          sync.RWMutex
	tickets     map[string]domain.Ticket
	comments    []domain.Comment
	profiles    map[string]domain.Profile
	credentials map[string]domain.Credential
	categories  map[string]domain.Category
	history     []domain.TicketHistory
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tickets:     make(map[string]domain.Ticket),
		profiles:    make(map[string]domain.Profile),
		credentials: make(map[string]domain.Credential),
		categories:  make(map[string]domain.Category),
	}
}

func (s *Store) Tickets() repository.TicketRepository { return ticketStore{s} }
func (s *Store) Comments() repository.CommentRepository { return commentStore{s} }
func (s *Store) Profiles() repository.ProfileRepository { return profileStore{s} }
func (s *Store) Credentials() repository.CredentialRepository { return credentialStore{s} }
func (s *Store) Categories() repository.CategoryRepository { return categoryStore{s} }
func (s *Store) History() repository.TicketHistoryRepository { return historyStore{s} }

type ticketStore struct{ *Store }

func (s ticketStore) Create(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	ticket.Version = 1
	s.tickets[ticket.ID] = cloneTicket(*ticket)
	id := ticket.ID
	onRollback(ctx, func() { delete(s.tickets, id) })
	return nil
}

func (s ticketStore) Update(ctx context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	// reporter, title, description and created_at are immutable
	next := cloneTicket(*ticket)
	next.ReporterID = current.ReporterID
	next.Title = current.Title
	next.Description = current.Description
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	s.tickets[ticket.ID] = next
	ticket.Version = next.Version
	onRollback(ctx, func() { s.tickets[current.ID] = current })
	return nil
}

func (s ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := cloneTicket(ticket)
	return &clone, nil
}

func (s ticketStore) GetSummary(_ context.Context, id string) (*domain.TicketSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	summary := s.summarize(ticket)
	return &summary, nil
}

func (s ticketStore) List(_ context.Context, filter repository.TicketFilter) ([]domain.TicketSummary, int, error) {
	filter = filter.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if matches(ticket, filter) {
			matched = append(matched, ticket)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	if filter.Offset >= total {
		return []domain.TicketSummary{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	page := make([]domain.TicketSummary, 0, end-filter.Offset)
	for _, ticket := range matched[filter.Offset:end] {
		page = append(page, s.summarize(ticket))
	}
	return page, total, nil
}

func (s ticketStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.tickets, id)

	comments := s.comments[:0]
	for _, c := range s.comments {
		if c.TicketID != id {
			comments = append(comments, c)
		}
	}
	s.comments = comments

	history := s.history[:0]
	for _, h := range s.history {
		if h.TicketID != id {
			history = append(history, h)
		}
	}
	s.history = history
	return nil
}

// summarize must be called with the lock held.
func (s *Store) summarize(ticket domain.Ticket) domain.TicketSummary {
	summary := domain.TicketSummary{Ticket: cloneTicket(ticket)}
	if reporter, ok := s.profiles[ticket.ReporterID]; ok {
		summary.Reporter = reporter.Ref()
	}
	if ticket.AssigneeID != nil {
		if assignee, ok := s.profiles[*ticket.AssigneeID]; ok {
			summary.Assignee = assignee.Ref()
		}
	}
	if ticket.CategoryID != nil {
		if category, ok := s.categories[*ticket.CategoryID]; ok {
			summary.Category = &domain.CategoryRef{ID: category.ID, Name: category.Name, Color: category.Color}
		}
	}
	return summary
}

func matches(ticket domain.Ticket, filter repository.TicketFilter) bool {
	if filter.ReporterID != nil && ticket.ReporterID != *filter.ReporterID {
		return false
	}
	if filter.AssigneeID != nil && (ticket.AssigneeID == nil || *ticket.AssigneeID != *filter.AssigneeID) {
		return false
	}
	if filter.CategoryID != nil && (ticket.CategoryID == nil || *ticket.CategoryID != *filter.CategoryID) {
		return false
	}
	if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	return true
}

func containsStatus(list []domain.TicketStatus, s domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func containsPriority(list []domain.TicketPriority, p domain.TicketPriority) bool {
	for _, candidate := range list {
		if candidate == p {
			return true
		}
	}
	return false
}

type commentStore struct{ *Store }

func (s commentStore) Create(ctx context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	stored := *comment
	stored.Author = nil
	s.comments = append(s.comments, stored)
	onRollback(ctx, func() { s.comments = removeComment(s.comments, stored.ID) })
	return nil
}

func (s commentStore) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Comment
	for _, c := range s.comments {
		if c.TicketID != ticketID {
			continue
		}
		if author, ok := s.profiles[c.UserID]; ok {
			c.Author = author.Ref()
		}
		result = append(result, c)
	}
	return result, nil
}

type profileStore struct{ *Store }

func (s profileStore) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

func (s profileStore) Upsert(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	id := profile.ID
	existing, ok := s.profiles[id]
	onRollback(ctx, func() {
		if ok {
			s.profiles[id] = existing
		} else {
			delete(s.profiles, id)
		}
	})
	if ok {
		profile.CreatedAt = existing.CreatedAt
	} else {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	s.profiles[profile.ID] = *profile
	return nil
}

func (s profileStore) Update(ctx context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.profiles[profile.ID]
	if !ok {
		return repository.ErrNotFound
	}
	previous := existing
	onRollback(ctx, func() { s.profiles[previous.ID] = previous })
	existing.FullName = profile.FullName
	existing.Department = profile.Department
	existing.Phone = profile.Phone
	existing.UpdatedAt = time.Now()
	s.profiles[profile.ID] = existing
	profile.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s profileStore) ListByRole(_ context.Context, role domain.Role) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Profile
	for _, p := range s.profiles {
		if p.Role == role {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })
	return result, nil
}

func (s profileStore) List(_ context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

type credentialStore struct{ *Store }

func (s credentialStore) Create(ctx context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(cred.Email)
	if _, ok := s.credentials[key]; ok {
		return repository.ErrDuplicate
	}
	cred.Email = key
	cred.CreatedAt = time.Now()
	s.credentials[key] = *cred
	onRollback(ctx, func() { delete(s.credentials, key) })
	return nil
}

func (s credentialStore) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.credentials[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &cred, nil
}

type categoryStore struct{ *Store }

func (s categoryStore) Create(_ context.Context, category *domain.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return repository.ErrDuplicate
		}
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	category.CreatedAt = time.Now()
	s.categories[category.ID] = *category
	return nil
}

func (s categoryStore) GetByID(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &category, nil
}

func (s categoryStore) List(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

type historyStore struct{ *Store }

func (s historyStore) Create(ctx context.Context, entry *domain.TicketHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.history = append(s.history, *entry)
	id := entry.ID
	onRollback(ctx, func() {
		kept := s.history[:0]
		for _, h := range s.history {
			if h.ID != id {
				kept = append(kept, h)
			}
		}
		s.history = kept
	})
	return nil
}

func (s historyStore) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.TicketHistory
	for _, h := range s.history {
		if h.TicketID == ticketID {
			result = append(result, h)
		}
	}
	return result, nil
}

func removeComment(comments []domain.Comment, id string) []domain.Comment {
	kept := comments[:0]
	for _, c := range comments {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return kept
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	t.CategoryID = cloneString(t.CategoryID)
	t.AssigneeID = cloneString(t.AssigneeID)
	t.AttachmentURL = cloneString(t.AttachmentURL)
	if t.ResolvedAt != nil {
		resolved := *t.ResolvedAt
		t.ResolvedAt = &resolved
	}
	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
