// Package models holds the persistent entities of the application.
package models

import "time"

// User is an authenticated principal. PasswordHash is opaque outside the
// credential verifier.
type User struct {
	ID           string    `json:"id"`
	UserName     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
