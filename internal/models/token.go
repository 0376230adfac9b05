package models

import "time"

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        UserPublic `json:"user"`
}
