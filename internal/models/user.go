package models

import "github.com/google/uuid"

type UserRole string

const (
	RoleMentee UserRole = "mentee"
	RoleMentor UserRole = "mentor"
	RoleAdmin  UserRole = "admin"
)

// User is the directory view of an account; profiles live elsewhere.
type User struct {
	ID       uuid.UUID `db:"id"`
	Name     string    `db:"name"`
	Role     UserRole  `db:"role"`
	Approved bool      `db:"approved"`
}

// IsApprovedMentor reports whether the user can be matched as a mentor.
func (u *User) IsApprovedMentor() bool {
	return u != nil && u.Role == RoleMentor && u.Approved
}

// Identity is the authenticated caller as resolved from the bearer token.
type Identity struct {
	UserID   uuid.UUID
	Role     UserRole
	Approved bool
}
