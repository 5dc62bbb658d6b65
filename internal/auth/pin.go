package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPIN is the out-of-the-box parent PIN until the parent sets their
// own. The gate separates parent and child screens on a shared device; it
// is not a security boundary.
const DefaultPIN = "1234"

var ErrWrongPIN = errors.New("incorrect PIN")

// HashPIN returns a bcrypt hash of the PIN for storage.
func HashPIN(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}
	return string(hash), nil
}

// VerifyPIN checks a PIN attempt against the stored hash. An empty stored
// hash means the parent never set one, so the default PIN applies.
func VerifyPIN(storedHash, attempt string) error {
	if storedHash == "" {
		if attempt == DefaultPIN {
			return nil
		}
		return ErrWrongPIN
	}
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(attempt)); err != nil {
		return ErrWrongPIN
	}
	return nil
}
