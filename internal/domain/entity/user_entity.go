package entity

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidUser is returned by Reconstitute when stored fields break the aggregate invariants.
var ErrInvalidUser = errors.New("invalid user state")

// PasswordHasher hashes and verifies credentials for the User aggregate.
// Implementations live outside the domain (see pkg/helpers).
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// now is replaced in tests.
var now = func() time.Time { return time.Now().UTC() }

// User is the aggregate root for the user domain.
// Fields are unexported; mutation goes through Update only. The password
// hash never leaves the aggregate except through PasswordHash, which only
// the repository should call.
type User struct {
	id           string
	name         string
	email        string
	passwordHash string
	role         Role
	createdAt    time.Time
	updatedAt    *time.Time
}

// NewUser creates a brand new user with a fresh id and a hashed password.
// It does not check email uniqueness and does not record any fact.
func NewUser(hasher PasswordHasher, name, email, plainPassword string, role Role) (*User, error) {
	if role == "" {
		role = RoleUser
	}
	hash, err := hasher.Hash(plainPassword)
	if err != nil {
		return nil, err
	}
	return &User{
		id:           uuid.NewString(),
		name:         name,
		email:        email,
		passwordHash: hash,
		role:         role,
		createdAt:    now(),
	}, nil
}

// Reconstitute rebuilds a User from persisted fields. Only the repository
// boundary should call it.
func Reconstitute(id, name, email, passwordHash string, role Role, createdAt time.Time, updatedAt *time.Time) (*User, error) {
	switch {
	case id == "":
		return nil, fmt.Errorf("%w: empty id", ErrInvalidUser)
	case passwordHash == "":
		return nil, fmt.Errorf("%w: empty password hash for %s", ErrInvalidUser, id)
	case updatedAt != nil && updatedAt.Before(createdAt):
		return nil, fmt.Errorf("%w: updated_at before created_at for %s", ErrInvalidUser, id)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	u := &User{
		id:           id,
		name:         name,
		email:        email,
		passwordHash: passwordHash,
		role:         role,
		createdAt:    createdAt,
	}
	if updatedAt != nil {
		t := *updatedAt
		u.updatedAt = &t
	}
	return u, nil
}

// Update replaces name and email and stamps UpdatedAt, even when nothing changed.
func (u *User) Update(name, email string) {
	u.name = name
	u.email = email
	t := now()
	// updatedAt must stay strictly after createdAt, even on a coarse or skewed clock.
	// Storage keeps microseconds, so the gap must survive that rounding.
	if t.Sub(u.createdAt) < time.Microsecond {
		t = u.createdAt.Add(time.Microsecond)
	}
	u.updatedAt = &t
}

// ValidatePassword checks plain against the stored hash. It has no side effects.
func (u *User) ValidatePassword(hasher PasswordHasher, plain string) bool {
	return hasher.Verify(plain, u.passwordHash)
}

func (u *User) ID() string           { return u.id }
func (u *User) Name() string         { return u.name }
func (u *User) Email() string        { return u.email }
func (u *User) PasswordHash() string { return u.passwordHash }
func (u *User) Role() Role           { return u.role }
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns nil until the first Update.
func (u *User) UpdatedAt() *time.Time {
	if u.updatedAt == nil {
		return nil
	}
	t := *u.updatedAt
	return &t
}
