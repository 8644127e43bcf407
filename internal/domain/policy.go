package domain

import "time"

// ResolvedAtPolicy decides what happens to ResolvedAt when a finished ticket
// is moved back to open or in_progress.
type ResolvedAtPolicy string

const (
	ResolvedAtRetain ResolvedAtPolicy = "retain"
	ResolvedAtClear  ResolvedAtPolicy = "clear"
)

// CanCreateTicket: reporters file tickets, admins may file on anyone's behalf.
func CanCreateTicket(actor Actor) bool {
	return actor.IsReporter() || actor.IsAdmin()
}

// CanViewTicket scopes reporters to their own tickets and technicians to
// tickets assigned to them.
func CanViewTicket(actor Actor, ticket *Ticket) bool {
	switch actor.Role {
	case RoleAdmin:
		return true
	case RoleReporter:
		return ticket.ReporterID == actor.ID
	case RoleTechnician:
		return ticket.IsAssignedTo(actor.ID)
	}
	return false
}

// CanAssign reports whether actor may set the assignee of a ticket.
func CanAssign(actor Actor) bool {
	return actor.IsAdmin()
}

// CanWorkTicket covers status, priority and evidence changes: admins, or the
// technician the ticket is assigned to.
func CanWorkTicket(actor Actor, ticket *Ticket) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.IsTechnician() && ticket.IsAssignedTo(actor.ID)
}

// CanUpdateStatus reports whether actor may change the status. Reporters never can.
func CanUpdateStatus(actor Actor, ticket *Ticket) bool {
	return CanWorkTicket(actor, ticket)
}

// CanAttachEvidence reports whether actor may upload the ticket attachment.
func CanAttachEvidence(actor Actor, ticket *Ticket) bool {
	return CanWorkTicket(actor, ticket)
}

// CanReadInternal reports whether actor may read and write internal comments.
func CanReadInternal(actor Actor) bool {
	return actor.IsAdmin() || actor.IsTechnician()
}

// CanPostInternal reports whether actor may flag a comment as internal.
func CanPostInternal(actor Actor) bool {
	return CanReadInternal(actor)
}

// CanDeleteTicket guards the administrative delete.
func CanDeleteTicket(actor Actor) bool {
	return actor.IsAdmin()
}

// ApplyStatus moves ticket to next. Any state may move to any other; the
// caller is responsible for authorization. Entering resolved or closed stamps
// ResolvedAt; leaving them applies policy.
func ApplyStatus(ticket *Ticket, next TicketStatus, now time.Time, policy ResolvedAtPolicy) {
	prev := ticket.Status
	ticket.Status = next
	ticket.UpdatedAt = now
	switch {
	case next.Finished():
		stamp := now
		ticket.ResolvedAt = &stamp
	case prev.Finished() && policy == ResolvedAtClear:
		ticket.ResolvedAt = nil
	}
}

// ApplyAssignment sets the assignee and starts work on the ticket.
// Assignment and work start are a single step.
func ApplyAssignment(ticket *Ticket, assigneeID string, now time.Time, policy ResolvedAtPolicy) {
	id := assigneeID
	ticket.AssigneeID = &id
	ApplyStatus(ticket, TicketStatusInProgress, now, policy)
}
