package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	reporter   = Actor{ID: "rep-1", Role: RoleReporter}
	otherRep   = Actor{ID: "rep-2", Role: RoleReporter}
	technician = Actor{ID: "tech-1", Role: RoleTechnician}
	otherTech  = Actor{ID: "tech-2", Role: RoleTechnician}
	admin      = Actor{ID: "admin-1", Role: RoleAdmin}
)

func assignedTicket() *Ticket {
	assignee := technician.ID
	return &Ticket{ID: "t-1", ReporterID: reporter.ID, AssigneeID: &assignee, Status: TicketStatusInProgress}
}

func TestParseTicketStatus(t *testing.T) {
	s, ok := ParseTicketStatus(" In_Progress ")
	assert.True(t, ok)
	assert.Equal(t, TicketStatusInProgress, s)

	_, ok = ParseTicketStatus("pending_user")
	assert.False(t, ok)
}

func TestParseTicketPriorityDefaultsToMedium(t *testing.T) {
	p, ok := ParseTicketPriority("")
	assert.True(t, ok)
	assert.Equal(t, TicketPriorityMedium, p)

	p, ok = ParseTicketPriority("URGENT")
	assert.True(t, ok)
	assert.Equal(t, TicketPriorityUrgent, p)

	_, ok = ParseTicketPriority("critical")
	assert.False(t, ok)
}

func TestParseRoleAcceptsLegacyLabels(t *testing.T) {
	r, ok := ParseRole("pelapor")
	assert.True(t, ok)
	assert.Equal(t, RoleReporter, r)

	r, ok = ParseRole("teknisi")
	assert.True(t, ok)
	assert.Equal(t, RoleTechnician, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)
}

func TestCanViewTicket(t *testing.T) {
	ticket := assignedTicket()

	assert.True(t, CanViewTicket(admin, ticket))
	assert.True(t, CanViewTicket(reporter, ticket))
	assert.True(t, CanViewTicket(technician, ticket))
	assert.False(t, CanViewTicket(otherRep, ticket))
	assert.False(t, CanViewTicket(otherTech, ticket))
	assert.False(t, CanViewTicket(Actor{ID: "x", Role: Role("guest")}, ticket))
}

func TestCanUpdateStatus(t *testing.T) {
	ticket := assignedTicket()

	assert.True(t, CanUpdateStatus(admin, ticket))
	assert.True(t, CanUpdateStatus(technician, ticket))
	assert.False(t, CanUpdateStatus(otherTech, ticket))
	// owning the ticket does not let a reporter change its status
	assert.False(t, CanUpdateStatus(reporter, ticket))

	unassigned := &Ticket{ReporterID: reporter.ID, Status: TicketStatusOpen}
	assert.False(t, CanUpdateStatus(technician, unassigned))
	assert.True(t, CanUpdateStatus(admin, unassigned))
}

func TestCanAssignAndInternal(t *testing.T) {
	assert.True(t, CanAssign(admin))
	assert.False(t, CanAssign(technician))
	assert.False(t, CanAssign(reporter))

	assert.True(t, CanReadInternal(admin))
	assert.True(t, CanReadInternal(technician))
	assert.False(t, CanReadInternal(reporter))
	assert.False(t, CanPostInternal(reporter))
	assert.True(t, CanPostInternal(technician))

	assert.True(t, CanCreateTicket(reporter))
	assert.True(t, CanCreateTicket(admin))
	assert.False(t, CanCreateTicket(technician))
}

func TestApplyStatusStampsResolvedAt(t *testing.T) {
	created := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	ticket := &Ticket{Status: TicketStatusInProgress, CreatedAt: created, UpdatedAt: created}
	now := created.Add(time.Hour)

	ApplyStatus(ticket, TicketStatusResolved, now, ResolvedAtRetain)

	require.NotNil(t, ticket.ResolvedAt)
	assert.Equal(t, now, *ticket.ResolvedAt)
	assert.Equal(t, now, ticket.UpdatedAt)
	assert.False(t, ticket.ResolvedAt.Before(created))

	closedAt := now.Add(time.Hour)
	ApplyStatus(ticket, TicketStatusClosed, closedAt, ResolvedAtRetain)
	assert.Equal(t, closedAt, *ticket.ResolvedAt)
}

func TestApplyStatusReopenPolicy(t *testing.T) {
	resolved := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)

	retained := &Ticket{Status: TicketStatusResolved, ResolvedAt: &resolved}
	ApplyStatus(retained, TicketStatusInProgress, resolved.Add(time.Minute), ResolvedAtRetain)
	require.NotNil(t, retained.ResolvedAt)
	assert.Equal(t, resolved, *retained.ResolvedAt)

	cleared := &Ticket{Status: TicketStatusClosed, ResolvedAt: &resolved}
	ApplyStatus(cleared, TicketStatusOpen, resolved.Add(time.Minute), ResolvedAtClear)
	assert.Nil(t, cleared.ResolvedAt)
}

func TestApplyStatusAllowsAnyTransition(t *testing.T) {
	all := []TicketStatus{TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed}
	for _, from := range all {
		for _, to := range all {
			ticket := &Ticket{Status: from}
			ApplyStatus(ticket, to, time.Now(), ResolvedAtRetain)
			assert.Equal(t, to, ticket.Status, "%s -> %s", from, to)
		}
	}
}

func TestApplyAssignmentStartsWork(t *testing.T) {
	ticket := &Ticket{Status: TicketStatusOpen}
	ApplyAssignment(ticket, technician.ID, time.Now(), ResolvedAtRetain)

	require.NotNil(t, ticket.AssigneeID)
	assert.Equal(t, technician.ID, *ticket.AssigneeID)
	assert.Equal(t, TicketStatusInProgress, ticket.Status)
}

func TestVisibleComments(t *testing.T) {
	comments := []Comment{
		{ID: "c1", Content: "public", IsInternal: false},
		{ID: "c2", Content: "internal", IsInternal: true},
		{ID: "c3", Content: "public again", IsInternal: false},
	}

	forReporter := VisibleComments(reporter, comments)
	require.Len(t, forReporter, 2)
	assert.Equal(t, "c1", forReporter[0].ID)
	assert.Equal(t, "c3", forReporter[1].ID)

	assert.Len(t, VisibleComments(technician, comments), 3)
	assert.Len(t, VisibleComments(admin, comments), 3)
	assert.Len(t, comments, 3)
}
