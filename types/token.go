package types

import "time"

// AuthToken is the opaque bearer credential issued after a successful login.
// Each user owns at most one token; it is reused on subsequent logins.
type AuthToken struct {
	// Key is the opaque token value presented in the Authorization header.
	Key string `json:"token" db:"key"`

	// UserID identifies the user the token authenticates.
	UserID int `json:"-" db:"user_id"`

	// CreatedAt is the timestamp when the token was issued.
	CreatedAt time.Time `json:"-" db:"created_at"`
}
