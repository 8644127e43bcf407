package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CommentRepository manages ticket comment threads.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, user_id, content, is_internal, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		comment.TicketID,
		comment.UserID,
		comment.Content,
		comment.IsInternal,
		comment.CreatedAt,
	).Scan(&comment.ID)
	return translate(err)
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT tc.id, tc.ticket_id, tc.user_id, tc.content, tc.is_internal, tc.created_at, p.full_name, p.email
        FROM ticket_comments tc
        LEFT JOIN profiles p ON p.id = tc.user_id
        WHERE tc.ticket_id=$1 ORDER BY tc.created_at ASC, tc.seq ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var (
			comment     domain.Comment
			authorName  *string
			authorEmail *string
		)
		if err := rows.Scan(
			&comment.ID,
			&comment.TicketID,
			&comment.UserID,
			&comment.Content,
			&comment.IsInternal,
			&comment.CreatedAt,
			&authorName,
			&authorEmail,
		); err != nil {
			return nil, err
		}
		if authorName != nil {
			comment.Author = &domain.ProfileRef{ID: comment.UserID, FullName: *authorName, Email: deref(authorEmail)}
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
