// Package model defines domain entities for the application.
package model

import (
	"strings"
	"time"
)

// User represents an account held by the auth provider.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// HasEmail reports whether the user's email matches, ignoring case.
func (u *User) HasEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Email), strings.TrimSpace(email))
}
