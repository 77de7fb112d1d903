package auth

import (
	"context"
	"errors"
	"strings"
)

// Service composes the password verifier and the token service to answer
// register, login, refresh and revoke requests.
type Service struct {
	users  UserStore
	hasher PasswordVerifier
	tokens *TokenService
}

// NewService constructs the authentication facade.
func NewService(users UserStore, hasher PasswordVerifier, tokens *TokenService) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens}
}

// Register creates a user with a hashed password. Names are unique and
// case-sensitive.
func (s *Service) Register(ctx context.Context, name, password string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, ErrInvalidInput
	}
	if _, err := s.users.FindByName(ctx, name); err == nil {
		return nil, ErrAlreadyExists
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	user := &User{Name: name, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. Unknown names
// and wrong passwords report the same error.
func (s *Service) Login(ctx context.Context, name, password string) (TokenPair, error) {
	user, err := s.users.FindByName(ctx, name)
	if err != nil || !s.hasher.Matches(user.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.tokens.Issue(ctx, user)
}

// Refresh redeems the presented refresh token and rotates: the redeemed
// token is spent and a fresh access+refresh pair comes back for the same
// user.
func (s *Service) Refresh(ctx context.Context, name, refreshToken string) (TokenPair, error) {
	user, err := s.tokens.Redeem(ctx, name, refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	return s.tokens.Issue(ctx, user)
}

// Revoke invalidates the user's current refresh token.
func (s *Service) Revoke(ctx context.Context, name, refreshToken string) error {
	return s.tokens.Revoke(ctx, name, refreshToken)
}

// Authenticate validates a bearer access token and resolves its user.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*User, error) {
	name, err := s.tokens.ParseAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByName(ctx, name)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return user, nil
}
