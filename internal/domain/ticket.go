package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// Valid reports whether s is one of the four recognized states.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// Finished reports whether s marks the work as done (resolved or closed).
func (s TicketStatus) Finished() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// ParseTicketStatus normalizes a status literal.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	s := TicketStatus(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// Valid reports whether p is a recognized priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// ParseTicketPriority normalizes a priority literal. An empty value yields medium.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TicketPriorityMedium, true
	}
	p := TicketPriority(strings.ToLower(raw))
	return p, p.Valid()
}

// Ticket is the aggregate tracked through the lifecycle.
type Ticket struct {
	ID            string
	Title         string
	Description   string
	Status        TicketStatus
	Priority      TicketPriority
	CategoryID    *string
	ReporterID    string
	AssigneeID    *string
	AttachmentURL *string
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ResolvedAt    *time.Time
}

// IsAssignedTo reports whether userID is the current assignee.
func (t *Ticket) IsAssignedTo(userID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// ProfileRef is the denormalized reporter/assignee summary.
type ProfileRef struct {
	ID       string
	FullName string
	Email    string
}

// CategoryRef is the denormalized category summary.
type CategoryRef struct {
	ID    string
	Name  string
	Color string
}

// TicketSummary is a ticket with its related records attached for display.
type TicketSummary struct {
	Ticket
	Reporter *ProfileRef
	Assignee *ProfileRef
	Category *CategoryRef
}
