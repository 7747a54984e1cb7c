package fieldcrypt

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"
)

// HashForIndex returns the SHA-256 hex digest of value. Used for exact-match
// lookups over sensitive columns; one way only, never reversed.
func HashForIndex(value string) string {
	h := sha256.Sum256([]byte(value))
	return hex.EncodeToString(h[:])
}

// HashWithSalt returns the SHA-256 hex digest of salt||value, for values
// that need a fixed, environment-wide salt.
func HashWithSalt(value string, salt []byte) string {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}

// DeriveIndexSalt expands shared secret material into the fixed 32-byte salt
// used by HashWithSalt, via HKDF-SHA256 with a purpose label. The same
// secret and purpose always yield the same salt.
func DeriveIndexSalt(secret []byte, purpose string) ([]byte, error) {
	r := hkdf.New(sha256.New, secret, nil, []byte(purpose))
	salt := make([]byte, 32)
	if _, err := io.ReadFull(r, salt); err != nil {
		return nil, err
	}
	return salt, nil
}
