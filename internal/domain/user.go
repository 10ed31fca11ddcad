package domain

import "time"

// User is the domain model for accounts that can sign in.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}
