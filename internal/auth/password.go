package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier hashes and checks plaintext passwords.
type PasswordVerifier interface {
	Hash(password string) (string, error)
	Matches(hash, password string) bool
}

// BcryptVerifier implements PasswordVerifier using bcrypt.
type BcryptVerifier struct{}

func (BcryptVerifier) Hash(password string) (string, error) {
	return HashPassword(password)
}

func (BcryptVerifier) Matches(hash, password string) bool {
	return VerifyPassword(hash, password) == nil
}

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (string, error) {
	if len(password) == 0 {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password with the stored hash.
func VerifyPassword(hash, password string) error {
	if hash == "" {
		return errors.New("password hash is empty")
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
