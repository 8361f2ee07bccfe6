// internal/membership/password.go
package membership

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Argon2id cost parameters for stored credentials.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

// Scheme names how a credential stores its secret.
type Scheme string

const (
	SchemeArgon2id Scheme = "argon2id"
	// SchemePlaintext keeps the password as typed. Never use outside demos.
	SchemePlaintext Scheme = "plaintext"
)

// Credential holds a user's login secret.
type Credential struct {
	Scheme       Scheme
	PasswordHash string
	Salt         string
}

func newCredential(scheme Scheme, password string) (*Credential, error) {
	switch scheme {
	case SchemeArgon2id:
		hash, salt, err := hashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		return &Credential{Scheme: scheme, PasswordHash: hash, Salt: salt}, nil
	case SchemePlaintext:
		return &Credential{Scheme: scheme, PasswordHash: password}, nil
	default:
		return nil, fmt.Errorf("unknown password scheme %q", scheme)
	}
}

// Verify reports whether password matches the credential.
func (c *Credential) Verify(password string) (bool, error) {
	switch c.Scheme {
	case SchemeArgon2id:
		return verifyPassword(password, c.Salt, c.PasswordHash)
	case SchemePlaintext:
		return subtle.ConstantTimeCompare([]byte(password), []byte(c.PasswordHash)) == 1, nil
	default:
		return false, fmt.Errorf("unknown password scheme %q", c.Scheme)
	}
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// hashPassword returns the base64 key and salt for a fresh credential.
func hashPassword(password string) (key, salt string, err error) {
	rawSalt := make([]byte, saltLen)
	if _, err := rand.Read(rawSalt); err != nil {
		return "", "", fmt.Errorf("failed to generate salt: %w", err)
	}
	enc := base64.StdEncoding
	return enc.EncodeToString(deriveKey(password, rawSalt)), enc.EncodeToString(rawSalt), nil
}

// verifyPassword re-derives the key from password and the stored salt.
func verifyPassword(password, salt, key string) (bool, error) {
	enc := base64.StdEncoding
	rawSalt, err := enc.DecodeString(salt)
	if err != nil {
		return false, fmt.Errorf("failed to decode salt: %w", err)
	}
	want, err := enc.DecodeString(key)
	if err != nil {
		return false, fmt.Errorf("failed to decode key: %w", err)
	}
	return subtle.ConstantTimeCompare(want, deriveKey(password, rawSalt)) == 1, nil
}
