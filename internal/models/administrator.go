package models

import "time"

// Administrator is an allow-list entry keyed by email. Presence of a row is
// what authorizes panel access; the password hash only backs the login flow.
type Administrator struct {
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}
