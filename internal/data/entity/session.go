package entity

import (
	"time"
)

// Session maps a bearer token to the identity that owns it.
type Session struct {
	BaseSimple
	Subject   string     `db:"subject"`
	Email     string     `db:"email"`
	Token     string     `db:"token"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}
