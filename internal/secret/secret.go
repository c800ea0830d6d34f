// Package secret models delete-password hashes as versioned values. Two
// schemes coexist in the files table: bcrypt for everything written by this
// engine, and a legacy hex-encoded SHA-256 left behind by earlier uploads.
// Verification is transparent; call sites never inspect the stored form.
package secret

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Scheme string

const (
	SchemeBcrypt       Scheme = "bcrypt"
	SchemeLegacySHA256 Scheme = "sha256"
)

const bcryptCost = 10

// Hashed is a stored delete-password hash plus the scheme that produced it.
type Hashed struct {
	scheme  Scheme
	payload string
}

// Hash hashes a plaintext password with the current scheme.
func Hash(plaintext string) (Hashed, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcryptCost)
	if err != nil {
		return Hashed{}, err
	}
	return Hashed{scheme: SchemeBcrypt, payload: string(b)}, nil
}

// Parse recovers a Hashed from its stored form. Bcrypt hashes carry the "$2"
// modular-crypt prefix; everything else is treated as a legacy SHA-256 digest.
func Parse(stored string) Hashed {
	if strings.HasPrefix(stored, "$2") {
		return Hashed{scheme: SchemeBcrypt, payload: stored}
	}
	return Hashed{scheme: SchemeLegacySHA256, payload: stored}
}

func (h Hashed) Scheme() Scheme {
	return h.scheme
}

// String returns the form persisted in the files table.
func (h Hashed) String() string {
	return h.payload
}

func (h Hashed) IsZero() bool {
	return h.payload == ""
}

// Verify reports whether plaintext matches the hash. The legacy path uses a
// constant-time compare; bcrypt is constant-time by construction.
func (h Hashed) Verify(plaintext string) bool {
	switch h.scheme {
	case SchemeBcrypt:
		return bcrypt.CompareHashAndPassword([]byte(h.payload), []byte(plaintext)) == nil
	case SchemeLegacySHA256:
		sum := sha256.Sum256([]byte(plaintext))
		computed := hex.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(computed), []byte(h.payload)) == 1
	}
	return false
}

// NeedsRehash reports whether the hash was produced by a scheme weaker than
// the current one. The engine only logs these; old hashes age out as files
// are deleted and re-uploaded.
func (h Hashed) NeedsRehash() bool {
	return h.scheme != SchemeBcrypt
}
