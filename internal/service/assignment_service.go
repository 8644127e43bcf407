package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	*ticketWriter
	profiles repository.ProfileRepository
}

// AssignmentDependencies bundles repositories.
type AssignmentDependencies struct {
	TicketRepo       repository.TicketRepository
	ProfileRepo      repository.ProfileRepository
	HistoryRepo      repository.TicketHistoryRepository
	Transactor       repository.Transactor
	Dispatcher       events.Dispatcher
	Logger           *zap.Logger
	ResolvedAtPolicy domain.ResolvedAtPolicy
	Clock            func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		ticketWriter: newTicketWriter(deps.TicketRepo, deps.HistoryRepo, deps.Transactor, deps.Dispatcher, deps.Logger, deps.ResolvedAtPolicy, deps.Clock),
		profiles:     deps.ProfileRepo,
	}
}

// AssignTicket hands a ticket to a technician and starts work on it. Only
// admins assign; the assignee must have the technician role.
func (s *AssignmentService) AssignTicket(ctx context.Context, actor domain.Actor, ticketID, assigneeID string, expectedVersion *int) (*domain.Ticket, error) {
	if !domain.CanAssign(actor) {
		return nil, forbidden("assign tickets")
	}
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, apperrors.NewValidationError("assignee_id is required", nil)
	}

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	assignee, err := s.profiles.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, storeError(err, "assignee", assigneeID)
	}
	if assignee.Role != domain.RoleTechnician {
		return nil, apperrors.NewInvalidAssignee(assigneeID, string(assignee.Role))
	}
	if err := checkVersion(ticket, expectedVersion); err != nil {
		return nil, err
	}

	prevAssignee := ticket.AssigneeID
	prevStatus := ticket.Status
	domain.ApplyAssignment(ticket, assignee.ID, s.now(), s.policy)
	if err := s.commit(ctx, actor, ticket, domain.ChangeTypeAssignee,
		map[string]any{"assignee_id": optional(prevAssignee), "status": prevStatus},
		map[string]any{"assignee_id": assignee.ID, "status": ticket.Status}); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.EventTicketAssigned, ticket.ID, events.TicketAssignedPayload{
		OldAssigneeID: prevAssignee,
		AssigneeID:    assignee.ID,
		OldStatus:     prevStatus,
	})
	return ticket, nil
}

// UnassignTicket clears the assignee of a ticket. The status is left as it
// is so an in-progress ticket can be reassigned later. Admin only.
func (s *AssignmentService) UnassignTicket(ctx context.Context, actor domain.Actor, ticketID string, expectedVersion *int) (*domain.Ticket, error) {
	if !domain.CanAssign(actor) {
		return nil, forbidden("unassign tickets")
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion(ticket, expectedVersion); err != nil {
		return nil, err
	}
	if ticket.AssigneeID == nil {
		return ticket, nil
	}

	prevAssignee := *ticket.AssigneeID
	ticket.AssigneeID = nil
	ticket.UpdatedAt = s.now()
	if err := s.commit(ctx, actor, ticket, domain.ChangeTypeAssignee,
		map[string]any{"assignee_id": prevAssignee},
		map[string]any{"assignee_id": nil}); err != nil {
		return nil, err
	}
	s.publish(ctx, actor, events.EventTicketUnassigned, ticket.ID, events.TicketUnassignedPayload{OldAssigneeID: prevAssignee})
	return ticket, nil
}
