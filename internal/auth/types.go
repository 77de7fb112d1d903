package auth

import (
	"errors"
	"time"
)

// User is a registered principal. At most one live refresh token exists per
// user; RefreshTokenHash is the sha256 hex of the opaque token, empty when
// no token is outstanding.
type User struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	PasswordHash       string    `json:"-"`
	RefreshTokenHash   string    `json:"-"`
	RefreshTokenExpiry time.Time `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TokenPair carries a signed access token and the opaque refresh token
// along with their expirations.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
	// ErrInvalidCredentials deliberately covers both unknown names and bad
	// secrets so callers cannot enumerate users.
	ErrInvalidCredentials = errors.New("auth: invalid name or credential")
	ErrInvalidToken       = errors.New("auth: invalid token")
)
