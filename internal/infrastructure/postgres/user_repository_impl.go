package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/adhunt/internal/domain/entity"
	"github.com/oksasatya/adhunt/internal/domain/errs"
	"github.com/oksasatya/adhunt/internal/domain/repository"
)

const userColumns = `id, email, phone_number, first_name, last_name, middle_name, role, password_hash, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FirstName, &u.LastName, &u.MiddleName,
		&role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, translate(err)
	}
	r, err := entity.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", u.ID, err)
	}
	u.Role = r
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, phone_number, first_name, last_name, middle_name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Phone, u.FirstName, u.LastName, u.MiddleName, u.Role.String(), u.PasswordHash)

	return translate(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errs.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *UserRepository) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1) AND ($2::text = '' OR id::text <> $2::text))
	`, email, excludeID).Scan(&taken)
	return taken, err
}

func (r *UserRepository) PhoneTaken(ctx context.Context, phone, excludeID string) (bool, error) {
	var taken bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM users WHERE phone_number = $1 AND ($2::text = '' OR id::text <> $2::text))
	`, phone, excludeID).Scan(&taken)
	return taken, err
}

// Update writes the profile fields. Role and password are not touched here.
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET email = $1, phone_number = $2, first_name = $3, last_name = $4, middle_name = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`, u.Email, u.Phone, u.FirstName, u.LastName, u.MiddleName, u.ID)
	return translate(row.Scan(&u.UpdatedAt))
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, hash, id)
	if err != nil {
		return translate(err)
	}
	if res.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows)
	}
	return nil
}

func (r *UserRepository) SetRole(ctx context.Context, id string, role entity.Role) error {
	res, err := r.pool.Exec(ctx, `UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, role.String(), id)
	if err != nil {
		return translate(err)
	}
	if res.RowsAffected() == 0 {
		return translate(pgx.ErrNoRows)
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
