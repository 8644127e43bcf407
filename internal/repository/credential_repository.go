package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CredentialRepository stores login secrets, keyed by lower-cased email.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository constructs repository.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	const query = `
        INSERT INTO credentials (user_id, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING created_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		cred.UserID,
		strings.ToLower(cred.Email),
		cred.PasswordHash,
	).Scan(&cred.CreatedAt)
	return translate(err)
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	const query = `
        SELECT user_id, email, password_hash, created_at
        FROM credentials WHERE email=$1`
	var cred domain.Credential
	if err := conn(ctx, r.pool).QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&cred.UserID,
		&cred.Email,
		&cred.PasswordHash,
		&cred.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &cred, nil
}
