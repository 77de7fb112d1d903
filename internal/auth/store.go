package auth

import (
	"context"
	"time"
)

// UserStore describes persistence operations required by the auth subsystem.
// Refresh-token fields are mutated only through SetRefreshToken; no other
// component writes them.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByName(ctx context.Context, name string) (*User, error)
	// SetRefreshToken replaces the stored token hash and expiry. An empty
	// hash with a zero expiry clears the token.
	SetRefreshToken(ctx context.Context, userID, tokenHash string, expiry time.Time) error
}
