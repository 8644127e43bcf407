package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketPriorityChanged  EventType = "ticket_priority_changed"
	EventTicketAssigned         EventType = "ticket_assigned"
	EventTicketUnassigned       EventType = "ticket_unassigned"
	EventTicketEvidenceAttached EventType = "ticket_evidence_attached"
	EventTicketCommentAdded     EventType = "ticket_comment_added"
	EventTicketDeleted          EventType = "ticket_deleted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketStatusChanged,
	EventTicketPriorityChanged,
	EventTicketAssigned,
	EventTicketUnassigned,
	EventTicketEvidenceAttached,
	EventTicketCommentAdded,
	EventTicketDeleted,
}

// Actor identifies who triggered an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// ActorFrom converts a domain actor.
func ActorFrom(a domain.Actor) Actor {
	return Actor{UserID: a.ID, Role: a.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

type TicketCreatedPayload struct {
	Title      string                `json:"title"`
	Priority   domain.TicketPriority `json:"priority"`
	CategoryID *string               `json:"category_id,omitempty"`
	ReporterID string                `json:"reporter_id"`
}

type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

type TicketPriorityChangedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

type TicketAssignedPayload struct {
	OldAssigneeID *string             `json:"old_assignee_id,omitempty"`
	AssigneeID    string              `json:"assignee_id"`
	OldStatus     domain.TicketStatus `json:"old_status"`
}

type TicketUnassignedPayload struct {
	OldAssigneeID string `json:"old_assignee_id"`
}

type TicketEvidenceAttachedPayload struct {
	URL string `json:"url"`
}

type TicketCommentAddedPayload struct {
	CommentID   string `json:"comment_id"`
	IsInternal  bool   `json:"is_internal"`
	Downgraded  bool   `json:"downgraded,omitempty"`
	BodyPreview string `json:"body_preview"`
}

type TicketDeletedPayload struct {
	Title string `json:"title"`
}
