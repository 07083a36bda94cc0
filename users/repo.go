package users

import "errors"

// ErrNotFound is returned when no user matches the given identifier or email.
var ErrNotFound = errors.New("user not found")

// UserRepo is the external user directory. The auth service only ever reads
// the identifier/role pair at issuance time; it never persists users itself.
type UserRepo interface {
	GetByID(id string) (*User, error)
	GetByEmail(email string) (*User, error)
	Create(user *User) (*User, error)
}
