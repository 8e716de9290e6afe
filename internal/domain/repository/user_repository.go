package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches a lookup.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned by Save when another user owns the email.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserRepository defines the interface for user-related database operations.
// Email uniqueness is enforced here, not by the aggregate.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	// Save inserts the user or updates it when the id already exists.
	Save(ctx context.Context, u *entity.User) error
	ExistsAdmin(ctx context.Context) (bool, error)
	List(ctx context.Context) ([]*entity.User, error)
}
