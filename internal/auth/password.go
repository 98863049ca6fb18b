package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/pbkdf2"

	"github.com/mrlokans/bookverse/internal/config"
)

const (
	credentialScheme = "pbkdf2-sha256"
	saltLength       = 32
	keyLength        = 32

	// MinPasswordLength is the shortest password accepted at registration.
	MinPasswordLength = 8
)

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
)

// ValidatePassword applies the registration password policy.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

// HashPassword derives a credential of the form
// pbkdf2-sha256$<iterations>$<hex(salt||key)>. Iteration counts below the
// configured minimum are raised to it.
func HashPassword(password string, iterations int) (string, error) {
	if iterations < config.MinPBKDF2Iterations {
		iterations = config.MinPBKDF2Iterations
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	encoded := hex.EncodeToString(append(salt, key...))

	return credentialScheme + "$" + strconv.Itoa(iterations) + "$" + encoded, nil
}

// VerifyPassword reports whether attempt matches the stored credential.
// A malformed credential never matches.
func VerifyPassword(credential, attempt string) bool {
	iterations, salt, key, ok := parseCredential(credential)
	if !ok {
		return false
	}
	derived := pbkdf2.Key([]byte(attempt), salt, iterations, len(key), sha256.New)
	return subtle.ConstantTimeCompare(derived, key) == 1
}

func parseCredential(credential string) (iterations int, salt, key []byte, ok bool) {
	parts := strings.Split(credential, "$")
	if len(parts) != 3 || parts[0] != credentialScheme {
		return 0, nil, nil, false
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return 0, nil, nil, false
	}

	raw, err := hex.DecodeString(parts[2])
	if err != nil || len(raw) <= saltLength {
		return 0, nil, nil, false
	}

	return iterations, raw[:saltLength], raw[saltLength:], true
}

// GenerateSessionSecret creates a random 32-byte secret, hex encoded,
// suitable for AUTH_SESSION_SECRET.
func GenerateSessionSecret() (string, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", err
	}
	return hex.EncodeToString(secret), nil
}
