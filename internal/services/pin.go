package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost for PIN checks. Every wrong PIN may be retried, so each
// attempt is kept to 19 MiB.
const (
	pinSaltLen = 16
	pinTime    = 2
	pinMemory  = 19 * 1024
	pinThreads = 1
	pinKeyLen  = 32
)

var pinPattern = regexp.MustCompile(`^[0-9]{4}$`)

// HashPIN hashes a PIN using Argon2id. A random salt is generated when none is given.
func HashPIN(pin string, salt []byte) (string, error) {
	if len(salt) == 0 {
		salt = make([]byte, pinSaltLen)
		if _, err := rand.Read(salt); err != nil {
			return "", fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	hash := argon2.IDKey([]byte(pin), salt, pinTime, pinMemory, pinThreads, pinKeyLen)

	result := make([]byte, len(salt)+len(hash))
	copy(result, salt)
	copy(result[len(salt):], hash)

	return base64.StdEncoding.EncodeToString(result), nil
}

// VerifyPIN verifies a PIN against its hash
func VerifyPIN(pin string, hashedPIN string) (bool, error) {
	decoded, err := base64.StdEncoding.DecodeString(hashedPIN)
	if err != nil {
		return false, fmt.Errorf("invalid PIN hash format: %w", err)
	}
	if len(decoded) <= pinSaltLen {
		return false, errors.New("PIN hash too short")
	}

	salt := decoded[:pinSaltLen]
	storedHash := decoded[pinSaltLen:]
	inputHash := argon2.IDKey([]byte(pin), salt, pinTime, pinMemory, pinThreads, pinKeyLen)

	return subtle.ConstantTimeCompare(inputHash, storedHash) == 1, nil
}

// PINVerifier holds the hashed shared secret that authorizes payments
type PINVerifier struct {
	hash string
}

func NewPINVerifier(secret string) (*PINVerifier, error) {
	if !pinPattern.MatchString(secret) {
		return nil, errors.New("PIN must be 4 digits")
	}
	hash, err := HashPIN(secret, nil)
	if err != nil {
		return nil, err
	}
	return &PINVerifier{hash: hash}, nil
}

// Verify reports whether pin matches the configured secret
func (v *PINVerifier) Verify(pin string) bool {
	if !pinPattern.MatchString(pin) {
		return false
	}
	ok, err := VerifyPIN(pin, v.hash)
	return err == nil && ok
}
