package entity

import (
	"time"
)

// User is the aggregate root for the identity domain.
// PasswordHash holds a bcrypt hash; Role is assigned at registration and is
// never taken from client input.
type User struct {
	ID           string
	Email        string
	Phone        string
	FirstName    string
	LastName     string
	MiddleName   string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) IsModerator() bool {
	return u != nil && u.Role == RoleModerator
}
