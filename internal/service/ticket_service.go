package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	*ticketWriter
	comments   repository.CommentRepository
	categories repository.CategoryRepository
	blobs      storage.BlobStore
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo       repository.TicketRepository
	CommentRepo      repository.CommentRepository
	CategoryRepo     repository.CategoryRepository
	HistoryRepo      repository.TicketHistoryRepository
	Transactor       repository.Transactor
	BlobStore        storage.BlobStore
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	ResolvedAtPolicy domain.ResolvedAtPolicy
	Clock            func() time.Time
}

// TicketCreateInput describes ticket creation payload. An empty priority
// means medium.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    string
	CategoryID  *string
}

// TicketListFilter describes listing filters. ReporterID and AssigneeID are
// only honoured for admins; other roles are scoped to their own tickets.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	CategoryID *string
	ReporterID *string
	AssigneeID *string
	Limit      int
	Offset     int
}

// TicketDetail is a ticket with the comments visible to the reader.
type TicketDetail struct {
	domain.TicketSummary
	Comments []domain.Comment
}

// EvidenceFile is an uploaded attachment.
type EvidenceFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		ticketWriter: newTicketWriter(deps.TicketRepo, deps.HistoryRepo, deps.Transactor, deps.Dispatcher, deps.Logger, deps.ResolvedAtPolicy, deps.Clock),
		comments:     deps.CommentRepo,
		categories:   deps.CategoryRepo,
		blobs:        deps.BlobStore,
	}
}

// CreateTicket files a new open, unassigned ticket on behalf of actor.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if !domain.CanCreateTicket(actor) {
		return nil, forbidden("create tickets")
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	missing := []string{}
	if title == "" {
		missing = append(missing, "title")
	}
	if description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("title and description are required", map[string]any{"missing": missing})
	}

	priority, ok := domain.ParseTicketPriority(input.Priority)
	if !ok {
		return nil, apperrors.NewValidationError("priority must be one of low, medium, high, urgent",
			map[string]any{"priority": input.Priority})
	}

	var categoryID *string
	if input.CategoryID != nil && strings.TrimSpace(*input.CategoryID) != "" {
		id := strings.TrimSpace(*input.CategoryID)
		if _, err := s.categories.GetByID(ctx, id); err != nil {
			return nil, storeError(err, "category", id)
		}
		categoryID = &id
	}

	now := s.now()
	ticket := &domain.Ticket{
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CategoryID:  categoryID,
		ReporterID:  actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := repository.RunInTx(ctx, s.tx, func(ctx context.Context) error {
		if err := s.tickets.Create(ctx, ticket); err != nil {
			return storeError(err, "ticket", "")
		}
		return s.record(ctx, actor, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
			"status":   ticket.Status,
			"priority": ticket.Priority,
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.EventTicketCreated, ticket.ID, events.TicketCreatedPayload{
		Title:      ticket.Title,
		Priority:   ticket.Priority,
		CategoryID: ticket.CategoryID,
		ReporterID: ticket.ReporterID,
	})
	return ticket, nil
}

// UpdateStatus moves a ticket to any of the four statuses. Only admins and
// the current assignee may do so.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, ticketID, rawStatus string, expectedVersion *int) (*domain.Ticket, error) {
	next, ok := domain.ParseTicketStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewInvalidStatus(rawStatus)
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanUpdateStatus(actor, ticket) {
		return nil, forbidden("change the status of this ticket")
	}
	if err := checkVersion(ticket, expectedVersion); err != nil {
		return nil, err
	}
	if ticket.Status == next {
		return ticket, nil
	}

	prev := ticket.Status
	domain.ApplyStatus(ticket, next, s.now(), s.policy)
	if err := s.commit(ctx, actor, ticket, domain.ChangeTypeStatus,
		map[string]any{"status": prev},
		map[string]any{"status": next}); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.EventTicketStatusChanged, ticket.ID, events.TicketStatusChangedPayload{
		OldStatus: prev,
		NewStatus: next,
	})
	return ticket, nil
}

// UpdatePriority changes ticket priority. Same rights as a status change.
func (s *TicketService) UpdatePriority(ctx context.Context, actor domain.Actor, ticketID, rawPriority string, expectedVersion *int) (*domain.Ticket, error) {
	next, ok := domain.ParseTicketPriority(rawPriority)
	if !ok || strings.TrimSpace(rawPriority) == "" {
		return nil, apperrors.NewValidationError("priority must be one of low, medium, high, urgent",
			map[string]any{"priority": rawPriority})
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanWorkTicket(actor, ticket) {
		return nil, forbidden("change the priority of this ticket")
	}
	if err := checkVersion(ticket, expectedVersion); err != nil {
		return nil, err
	}
	if ticket.Priority == next {
		return ticket, nil
	}

	prev := ticket.Priority
	ticket.Priority = next
	ticket.UpdatedAt = s.now()
	if err := s.commit(ctx, actor, ticket, domain.ChangeTypePriority,
		map[string]any{"priority": prev},
		map[string]any{"priority": next}); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.EventTicketPriorityChanged, ticket.ID, events.TicketPriorityChangedPayload{
		OldPriority: prev,
		NewPriority: next,
	})
	return ticket, nil
}

// AttachEvidence uploads file to the blob store and records its URL on the
// ticket. Upload failures are returned as UPLOAD_FAILED and not retried.
func (s *TicketService) AttachEvidence(ctx context.Context, actor domain.Actor, ticketID string, file EvidenceFile) (*domain.Ticket, error) {
	if len(file.Data) == 0 {
		return nil, apperrors.NewValidationError("file is required", nil)
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanAttachEvidence(actor, ticket) {
		return nil, forbidden("attach evidence to this ticket")
	}
	if s.blobs == nil {
		return nil, apperrors.NewUploadError(nil)
	}

	now := s.now()
	key := storage.ObjectKey(ticket.ID, file.Filename, now)
	url, err := s.blobs.Upload(ctx, key, file.ContentType, file.Data)
	if err != nil {
		s.logger.Warn("evidence upload failed", zap.String("ticket_id", ticket.ID), zap.String("key", key), zap.Error(err))
		return nil, apperrors.NewUploadError(err)
	}

	prev := ticket.AttachmentURL
	ticket.AttachmentURL = &url
	ticket.UpdatedAt = now
	if err := s.commit(ctx, actor, ticket, domain.ChangeTypeAttachment,
		map[string]any{"attachment_url": optional(prev)},
		map[string]any{"attachment_url": url}); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.EventTicketEvidenceAttached, ticket.ID, events.TicketEvidenceAttachedPayload{URL: url})
	return ticket, nil
}

// ListTickets returns the page of tickets visible to actor, newest first,
// and the total number of matches.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) ([]domain.TicketSummary, int, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, 0, apperrors.NewValidationError("limit and offset must not be negative",
			map[string]any{"limit": filter.Limit, "offset": filter.Offset})
	}

	repoFilter := repository.TicketFilter{
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		CategoryID: filter.CategoryID,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	switch actor.Role {
	case domain.RoleAdmin:
		repoFilter.ReporterID = filter.ReporterID
		repoFilter.AssigneeID = filter.AssigneeID
	case domain.RoleReporter:
		id := actor.ID
		repoFilter.ReporterID = &id
	case domain.RoleTechnician:
		id := actor.ID
		repoFilter.AssigneeID = &id
	default:
		return nil, 0, forbidden("list tickets")
	}

	items, total, err := s.tickets.List(ctx, repoFilter.Normalize())
	if err != nil {
		return nil, 0, storeError(err, "ticket", "")
	}
	if items == nil {
		items = []domain.TicketSummary{}
	}
	return items, total, nil
}

// GetTicket returns the ticket with denormalized references and the comments
// actor may read.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetail, error) {
	summary, err := s.tickets.GetSummary(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if !domain.CanViewTicket(actor, &summary.Ticket) {
		return nil, forbidden("view this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "comment", ticketID)
	}
	return &TicketDetail{
		TicketSummary: *summary,
		Comments:      domain.VisibleComments(actor, comments),
	}, nil
}

// ListHistory returns the audit trail of a ticket to staff who can see it.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.TicketHistory, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !domain.CanViewTicket(actor, ticket) || !domain.CanReadInternal(actor) {
		return nil, forbidden("view the history of this ticket")
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket history", ticketID)
	}
	if entries == nil {
		entries = []domain.TicketHistory{}
	}
	return entries, nil
}

// DeleteTicket removes a ticket with its comments and history. Admin only.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	if !domain.CanDeleteTicket(actor) {
		return forbidden("delete tickets")
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return storeError(err, "ticket", ticketID)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticketID), zap.String("actor_id", actor.ID))
	s.publish(ctx, actor, events.EventTicketDeleted, ticketID, events.TicketDeletedPayload{Title: ticket.Title})
	return nil
}
