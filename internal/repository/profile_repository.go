package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ProfileRepository defines persistence access for user profiles.
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	// Upsert inserts the profile or, when the id exists, refreshes its fields.
	Upsert(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileColumns = `id, email, full_name, role, department, phone, created_at, updated_at`

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1`
	var profile domain.Profile
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(profileFields(&profile)...); err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

func (r *profileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query := `
        INSERT INTO profiles (id, email, full_name, role, department, phone)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO UPDATE SET email=EXCLUDED.email, full_name=EXCLUDED.full_name,
            role=EXCLUDED.role, department=EXCLUDED.department, phone=EXCLUDED.phone, updated_at=NOW()
        RETURNING ` + profileColumns
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		profile.ID,
		profile.Email,
		profile.FullName,
		profile.Role,
		profile.Department,
		profile.Phone,
	).Scan(profileFields(profile)...)
	return translate(err)
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET full_name=$1, department=$2, phone=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		profile.FullName,
		profile.Department,
		profile.Phone,
		profile.ID,
	).Scan(&profile.UpdatedAt)
	return translate(err)
}

func (r *profileRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE role=$1 ORDER BY full_name ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, role)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func (r *profileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles ORDER BY created_at DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func profileFields(profile *domain.Profile) []any {
	return []any{
		&profile.ID,
		&profile.Email,
		&profile.FullName,
		&profile.Role,
		&profile.Department,
		&profile.Phone,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	}
}

func scanProfiles(rows pgx.Rows) ([]domain.Profile, error) {
	var result []domain.Profile
	for rows.Next() {
		var profile domain.Profile
		if err := rows.Scan(profileFields(&profile)...); err != nil {
			return nil, err
		}
		result = append(result, profile)
	}
	return result, rows.Err()
}
