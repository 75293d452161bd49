package models

import (
	"time"

	"github.com/google/uuid"
)

// User types. Stored as plain text in the users table.
const (
	UserTypeRegular = "user"
	UserTypeAdmin   = "admin"
)

type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Email          string
	FullName       string
	HashedPassword string
	Verified       bool
	Type           string
}

// IsAdmin reports whether the user may call administrative endpoints.
func (u User) IsAdmin() bool {
	return u.Type == UserTypeAdmin
}
