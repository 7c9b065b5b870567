// Package cryptox wraps the credential hashing used for user passwords.
package cryptox

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt's 72-byte input limit. Longer passwords are rejected up front rather
// than silently truncated.
const maxPasswordLength = 72

var (
	ErrPasswordTooLong  = errors.New("cryptox: password exceeds 72 bytes")
	ErrPasswordMismatch = errors.New("cryptox: password does not match")
)

// HashPassword hashes a plaintext password with bcrypt at the default cost.
// The produced hash is self-salting; two hashes of the same password differ.
func HashPassword(password string) (string, error) {
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares a plaintext password against a stored bcrypt hash.
// It returns ErrPasswordMismatch for a wrong password or a malformed hash;
// it never panics. Deliberately CPU-bound, keep it off hot paths.
func VerifyPassword(password, encodedHash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
	if err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
