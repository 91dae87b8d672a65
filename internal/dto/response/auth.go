package response

import "time"

type SessionResponse struct {
	Token     string    `json:"token"`
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
