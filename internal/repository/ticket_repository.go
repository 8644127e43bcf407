package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// TicketFilter captures listing parameters. Nil or empty fields do not filter.
type TicketFilter struct {
	ReporterID *string
	AssigneeID *string
	CategoryID *string
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// Normalize clamps pagination to the supported window.
func (f TicketFilter) Normalize() TicketFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes ticket if the stored version equals ticket.Version and
	// bumps ticket.Version on success.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetSummary(ctx context.Context, id string) (*domain.TicketSummary, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.TicketSummary, int, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `t.id, t.title, t.description, t.status, t.priority, t.category_id, t.reporter_id,
       t.assignee_id, t.attachment_url, t.version, t.created_at, t.updated_at, t.resolved_at`

const summaryJoins = `
        LEFT JOIN profiles rp ON rp.id = t.reporter_id
        LEFT JOIN profiles ap ON ap.id = t.assignee_id
        LEFT JOIN categories c ON c.id = t.category_id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, category_id, reporter_id, assignee_id,
            attachment_url, created_at, updated_at, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, version`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.CategoryID,
		ticket.ReporterID,
		ticket.AssigneeID,
		ticket.AttachmentURL,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
	).Scan(&ticket.ID, &ticket.Version)
	return translate(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET status=$1, priority=$2, category_id=$3, assignee_id=$4, attachment_url=$5,
            updated_at=$6, resolved_at=$7, version=version+1
        WHERE id=$8 AND version=$9
        RETURNING version`
	var version int
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.Status,
		ticket.Priority,
		ticket.CategoryID,
		ticket.AssigneeID,
		ticket.AttachmentURL,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
		ticket.ID,
		ticket.Version,
	).Scan(&version)
	if err == nil {
		ticket.Version = version
		return nil
	}
	if err != pgx.ErrNoRows {
		return translate(err)
	}
	var exists bool
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE id=$1)`, ticket.ID).Scan(&exists); err != nil {
		return translate(err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	var ticket domain.Ticket
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(ticketFields(&ticket)...); err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) GetSummary(ctx context.Context, id string) (*domain.TicketSummary, error) {
	query := `SELECT ` + ticketColumns + `, rp.full_name, rp.email, ap.full_name, ap.email, c.name, c.color
        FROM tickets t` + summaryJoins + ` WHERE t.id=$1`
	rows, err := conn(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, translate(err)
	}
	if len(summaries) == 0 {
		return nil, ErrNotFound
	}
	return &summaries[0], nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.TicketSummary, int, error) {
	filter = filter.Normalize()
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("t.reporter_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("t.assignee_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("t.category_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.priority IN (%s)", strings.Join(placeholders, ",")))
	}
	where := strings.Join(clauses, " AND ")

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM tickets t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err)
	}

	query := fmt.Sprintf(`SELECT %s, rp.full_name, rp.email, ap.full_name, ap.email, c.name, c.color
        FROM tickets t %s
        WHERE %s ORDER BY t.created_at DESC, t.id DESC LIMIT %d OFFSET %d`,
		ticketColumns, summaryJoins, where, filter.Limit, filter.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translate(err)
	}
	defer rows.Close()
	summaries, err := scanSummaries(rows)
	if err != nil {
		return nil, 0, translate(err)
	}
	return summaries, total, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func ticketFields(ticket *domain.Ticket) []any {
	return []any{
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.CategoryID,
		&ticket.ReporterID,
		&ticket.AssigneeID,
		&ticket.AttachmentURL,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	}
}

func scanSummaries(rows pgx.Rows) ([]domain.TicketSummary, error) {
	var result []domain.TicketSummary
	for rows.Next() {
		var (
			summary                     domain.TicketSummary
			reporterName, reporterEmail *string
			assigneeName, assigneeEmail *string
			categoryName, categoryColor *string
		)
		fields := append(ticketFields(&summary.Ticket),
			&reporterName, &reporterEmail,
			&assigneeName, &assigneeEmail,
			&categoryName, &categoryColor,
		)
		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}
		if reporterName != nil {
			summary.Reporter = &domain.ProfileRef{ID: summary.ReporterID, FullName: *reporterName, Email: deref(reporterEmail)}
		}
		if assigneeName != nil && summary.AssigneeID != nil {
			summary.Assignee = &domain.ProfileRef{ID: *summary.AssigneeID, FullName: *assigneeName, Email: deref(assigneeEmail)}
		}
		if categoryName != nil && summary.CategoryID != nil {
			summary.Category = &domain.CategoryRef{ID: *summary.CategoryID, Name: *categoryName, Color: deref(categoryColor)}
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
