package repository

import (
	"context"

	"github.com/oksasatya/adhunt/internal/domain/entity"
)

// UserRepository defines the interface for user-related storage operations.
// Lookups return errs.ErrNotFound when nothing matches; writes return
// errs.ErrDuplicateEmail / errs.ErrDuplicatePhone on uniqueness violations.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// EmailTaken and PhoneTaken ignore the user with excludeID.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	PhoneTaken(ctx context.Context, phone, excludeID string) (bool, error)
	Update(ctx context.Context, u *entity.User) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetRole(ctx context.Context, id string, role entity.Role) error
}
