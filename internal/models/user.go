package models

import "time"

// User is a registered account, keyed by the exact email string as typed.
// Records are created on first successful authentication and never mutated.
type User struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
