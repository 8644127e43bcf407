package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// CommentService appends to and reads ticket threads.
type CommentService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	profiles   repository.ProfileRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	strict     bool
	now        func() time.Time
}

// CommentDependencies bundles collaborators for the comment service.
type CommentDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	ProfileRepo repository.ProfileRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	// StrictInternal rejects internal comments from reporters instead of
	// posting them as public.
	StrictInternal bool
	Clock          func() time.Time
}

func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &CommentService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		profiles:   deps.ProfileRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		strict:     deps.StrictInternal,
		now:        clock,
	}
}

// AddComment appends a comment to a ticket actor can see.
func (s *CommentService) AddComment(ctx context.Context, actor domain.Actor, ticketID, content string, isInternal bool) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("comment content is required", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if !domain.CanViewTicket(actor, ticket) {
		return nil, forbidden("comment on this ticket")
	}

	downgraded := false
	if isInternal && !domain.CanPostInternal(actor) {
		if s.strict {
			return nil, forbidden("post internal comments")
		}
		isInternal = false
		downgraded = true
		s.logger.Debug("internal flag dropped for reporter comment",
			zap.String("ticket_id", ticket.ID), zap.String("actor_id", actor.ID))
	}

	comment := &domain.Comment{
		TicketID:   ticket.ID,
		UserID:     actor.ID,
		Content:    content,
		IsInternal: isInternal,
		CreatedAt:  s.now(),
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		// a missing ticket here means it was deleted after the read above
		if errors.Is(err, repository.ErrNotFound) {
			return nil, storeError(err, "ticket", ticketID)
		}
		return nil, storeError(err, "comment", ticketID)
	}
	if s.profiles != nil {
		if author, err := s.profiles.GetByID(ctx, actor.ID); err == nil {
			comment.Author = author.Ref()
		}
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:      events.EventTicketCommentAdded,
		TicketID:  ticket.ID,
		Actor:     events.ActorFrom(actor),
		Timestamp: comment.CreatedAt,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			IsInternal:  comment.IsInternal,
			Downgraded:  downgraded,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// ListComments returns the thread in insertion order, filtered for actor.
func (s *CommentService) ListComments(ctx context.Context, actor domain.Actor, ticketID string) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	if !domain.CanViewTicket(actor, ticket) {
		return nil, forbidden("view this ticket")
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "comment", ticketID)
	}
	return domain.VisibleComments(actor, comments), nil
}
