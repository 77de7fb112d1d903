package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultIssuer     = "bankrest"
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 24 * time.Hour
)

// TokenService issues, redeems and revokes token pairs. The refresh token
// state machine per user is Absent -> Active -> Absent: Issue replaces any
// live token, Redeem and Revoke clear it when the presented token matches.
type TokenService struct {
	users  UserStore
	secret []byte

	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService)

// WithIssuer overrides the access token issuer claim.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			s.issuer = issuer
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewTokenService constructs a TokenService. The signing secret is required.
func NewTokenService(users UserStore, secret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is not configured")
	}
	s := &TokenService{
		users:      users,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a short-lived access token for the user and mints a fresh
// refresh token, overwriting any prior one. This is the rotation point: the
// previously issued refresh token stops redeeming as soon as Issue returns.
func (s *TokenService) Issue(ctx context.Context, user *User) (TokenPair, error) {
	now := s.now().UTC()
	accessExp := now.Add(s.accessTTL)

	claims := jwt.RegisteredClaims{
		Issuer:    s.issuer,
		Subject:   user.Name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(accessExp),
		ID:        uuid.NewString(),
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh, refreshHash, err := generateRefreshToken()
	if err != nil {
		return TokenPair{}, err
	}
	refreshExp := now.Add(s.refreshTTL)
	if err := s.users.SetRefreshToken(ctx, user.ID, refreshHash, refreshExp); err != nil {
		return TokenPair{}, err
	}
	user.RefreshTokenHash = refreshHash
	user.RefreshTokenExpiry = refreshExp

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Redeem consumes a refresh token. It fails with ErrInvalidToken when the
// user is unknown, the token mismatches, or the token has expired; state is
// untouched in every failure case. On success the stored token is cleared,
// so a token redeems exactly once.
func (s *TokenService) Redeem(ctx context.Context, name, token string) (*User, error) {
	user, err := s.users.FindByName(ctx, name)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !tokenMatches(user.RefreshTokenHash, token) {
		return nil, ErrInvalidToken
	}
	if !user.RefreshTokenExpiry.After(s.now().UTC()) {
		return nil, ErrInvalidToken
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, "", time.Time{}); err != nil {
		return nil, err
	}
	user.RefreshTokenHash = ""
	user.RefreshTokenExpiry = time.Time{}
	return user, nil
}

// Revoke clears the stored refresh token when the presented token matches.
// Unlike Redeem it ignores expiry: logging a session out is valid even after
// the token has lapsed.
func (s *TokenService) Revoke(ctx context.Context, name, token string) error {
	user, err := s.users.FindByName(ctx, name)
	if err != nil {
		return ErrInvalidToken
	}
	if !tokenMatches(user.RefreshTokenHash, token) {
		return ErrInvalidToken
	}
	return s.users.SetRefreshToken(ctx, user.ID, "", time.Time{})
}

// ParseAccessToken verifies the signature and claims of an access token and
// returns the subject name.
func (s *TokenService) ParseAccessToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired(), jwt.WithTimeFunc(func() time.Time { return s.now().UTC() }))
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func generateRefreshToken() (token, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(raw)
	return token, hashToken(token), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func tokenMatches(storedHash, presented string) bool {
	if storedHash == "" || presented == "" {
		return false
	}
	actual := hashToken(presented)
	if len(actual) != len(storedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(actual)) == 1
}
