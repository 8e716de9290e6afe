// Package event defines the domain facts recorded for users.
//
// Fact is a closed set: only the types in this file implement it, so a
// type switch over UserCreated, UserUpdated and UserLoggedIn is exhaustive.
package event

import (
	"time"

	"github.com/oksasatya/cloudgames-users/internal/domain/entity"
)

// FactType is the tag stored alongside a serialized fact.
type FactType string

const (
	TypeUserCreated  FactType = "UserCreated"
	TypeUserUpdated  FactType = "UserUpdated"
	TypeUserLoggedIn FactType = "UserLoggedIn"
)

// Fact is an immutable record of something that happened to a user.
type Fact interface {
	SubjectID() string
	Type() FactType
	OccurredAt() time.Time
	sealed()
}

type UserCreated struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Role     string    `json:"role"`
	Occurred time.Time `json:"occurredAt"`
}

type UserUpdated struct {
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Occurred time.Time `json:"occurredAt"`
}

type UserLoggedIn struct {
	UserID   string    `json:"userId"`
	Email    string    `json:"email"`
	Success  bool      `json:"success"`
	Occurred time.Time `json:"occurredAt"`
}

func (e UserCreated) SubjectID() string     { return e.UserID }
func (e UserCreated) Type() FactType        { return TypeUserCreated }
func (e UserCreated) OccurredAt() time.Time { return e.Occurred }
func (UserCreated) sealed()                 {}

func (e UserUpdated) SubjectID() string     { return e.UserID }
func (e UserUpdated) Type() FactType        { return TypeUserUpdated }
func (e UserUpdated) OccurredAt() time.Time { return e.Occurred }
func (UserUpdated) sealed()                 {}

func (e UserLoggedIn) SubjectID() string     { return e.UserID }
func (e UserLoggedIn) Type() FactType        { return TypeUserLoggedIn }
func (e UserLoggedIn) OccurredAt() time.Time { return e.Occurred }
func (UserLoggedIn) sealed()                 {}

// Created builds the creation fact for u.
func Created(u *entity.User) UserCreated {
	return UserCreated{
		UserID:   u.ID(),
		Name:     u.Name(),
		Email:    u.Email(),
		Role:     u.Role().String(),
		Occurred: u.CreatedAt(),
	}
}

// Updated builds the update fact for u. Call it after User.Update.
func Updated(u *entity.User) UserUpdated {
	at := u.CreatedAt()
	if t := u.UpdatedAt(); t != nil {
		at = *t
	}
	return UserUpdated{UserID: u.ID(), Name: u.Name(), Email: u.Email(), Occurred: at}
}

// LoggedIn builds a login attempt fact for u.
func LoggedIn(u *entity.User, success bool, at time.Time) UserLoggedIn {
	return UserLoggedIn{UserID: u.ID(), Email: u.Email(), Success: success, Occurred: at}
}
