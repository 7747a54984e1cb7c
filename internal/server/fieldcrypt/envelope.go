// Package fieldcrypt implements field-level envelope encryption for PII and
// medical values. Each field is sealed under AES-256-GCM with a per-context
// data key from the key provider; the encryption context is bound to the
// ciphertext as additional authenticated data and kept on the envelope as an
// auditable record of why the key was used.
package fieldcrypt

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"sort"

	"github.com/m00n5h075/serenya-sub003/internal/common"
	"github.com/m00n5h075/serenya-sub003/internal/server/keys"
)

const (
	// EnvelopeVersion identifies the serialized envelope layout.
	EnvelopeVersion = "v1"
	// Algorithm identifies the AEAD protecting the ciphertext.
	Algorithm = "AES-256-GCM"

	gcmTagSize = 16

	// ContextFieldKey is the context label carrying the field name in
	// per-field contexts built by EncryptFields.
	ContextFieldKey = "field"
)

// Envelope is the persisted representation of one encrypted field value.
// Envelopes are write-once: re-encrypting even identical plaintext produces
// a new envelope with a fresh IV and tag.
type Envelope struct {
	Version    string            `json:"version"`
	Algorithm  string            `json:"algorithm"`
	WrappedKey string            `json:"wrapped_key"`
	IV         string            `json:"iv"`
	Tag        string            `json:"tag"`
	Ciphertext string            `json:"ciphertext"`
	Context    map[string]string `json:"context"`
}

// KeySource yields data keys for encryption and unwraps them for
// decryption. *keys.Provider satisfies it.
type KeySource interface {
	GetDataKey(ctx context.Context, masterKeyID string, encCtx map[string]string) (keys.DataKey, error)
	UnwrapDataKey(ctx context.Context, wrapped []byte, encCtx map[string]string) ([]byte, error)
}

// Cipher encrypts and decrypts individual field values.
type Cipher struct {
	keys KeySource
}

func NewCipher(ks KeySource) *Cipher {
	return &Cipher{keys: ks}
}

// canonicalContext renders the context deterministically for use as AAD, so
// the same context always authenticates the same bytes.
func canonicalContext(encCtx map[string]string) []byte {
	names := make([]string, 0, len(encCtx))
	for k := range encCtx {
		names = append(names, k)
	}
	sort.Strings(names)

	var b bytes.Buffer
	for i, k := range names {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encCtx[k])
	}
	return b.Bytes()
}

func cloneContext(encCtx map[string]string) map[string]string {
	out := make(map[string]string, len(encCtx))
	for k, v := range encCtx {
		out[k] = v
	}
	return out
}

// EncryptField seals plaintext into an envelope. Empty plaintext is a no-op:
// absent data must not be encrypted, so the caller gets nil back.
func (c *Cipher) EncryptField(ctx context.Context, plaintext string, masterKeyID string, encCtx map[string]string) (*Envelope, error) {
	if plaintext == "" {
		return nil, nil
	}

	dk, err := c.keys.GetDataKey(ctx, masterKeyID, encCtx)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(dk.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm init: %w", err)
	}

	iv := common.GenerateRandByteArray(aesgcm.NonceSize())
	sealed := aesgcm.Seal(nil, iv, []byte(plaintext), canonicalContext(encCtx))
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	return &Envelope{
		Version:    EnvelopeVersion,
		Algorithm:  Algorithm,
		WrappedKey: base64.StdEncoding.EncodeToString(dk.Wrapped),
		IV:         base64.StdEncoding.EncodeToString(iv),
		Tag:        base64.StdEncoding.EncodeToString(tag),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		Context:    cloneContext(encCtx),
	}, nil
}

// DecryptField opens an envelope. Any integrity failure — unknown version or
// algorithm, undecodable parts, tag mismatch, context mismatch — is returned
// as an error, never as a silent empty result.
func (c *Cipher) DecryptField(ctx context.Context, env *Envelope) (string, error) {
	if env == nil {
		return "", fmt.Errorf("%w: nil envelope", common.ErrorInvalidEnvelope)
	}
	if env.Version != EnvelopeVersion {
		return "", fmt.Errorf("%w: unsupported version %q", common.ErrorInvalidEnvelope, env.Version)
	}
	if env.Algorithm != Algorithm {
		return "", fmt.Errorf("%w: unsupported algorithm %q", common.ErrorInvalidEnvelope, env.Algorithm)
	}

	wrapped, err := base64.StdEncoding.DecodeString(env.WrappedKey)
	if err != nil {
		return "", fmt.Errorf("%w: wrapped key: %v", common.ErrorInvalidEnvelope, err)
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", common.ErrorInvalidEnvelope, err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil {
		return "", fmt.Errorf("%w: tag: %v", common.ErrorInvalidEnvelope, err)
	}
	ct, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", common.ErrorInvalidEnvelope, err)
	}

	// The embedded context drives the unwrap; a context that does not match
	// the one bound at encryption time fails either here (key service
	// context check) or below (AAD verification).
	key, err := c.keys.UnwrapDataKey(ctx, wrapped, env.Context)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}

	sealed := append(append([]byte{}, ct...), tag...)
	plain, err := aesgcm.Open(nil, iv, sealed, canonicalContext(env.Context))
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrorDecryptionFailed, err)
	}
	return string(plain), nil
}

// EncryptFields seals the named fields of record, returning an envelope per
// non-empty field. The field name is merged into the per-field context so
// ciphertexts are not interchangeable across fields even for identical
// plaintext values.
func (c *Cipher) EncryptFields(ctx context.Context, record map[string]string, fieldNames []string, masterKeyID string, encCtx map[string]string) (map[string]*Envelope, error) {
	out := make(map[string]*Envelope, len(fieldNames))
	for _, name := range fieldNames {
		fctx := cloneContext(encCtx)
		fctx[ContextFieldKey] = name

		env, err := c.EncryptField(ctx, record[name], masterKeyID, fctx)
		if err != nil {
			return nil, fmt.Errorf("encrypt field %s: %w", name, err)
		}
		if env != nil {
			out[name] = env
		}
	}
	return out, nil
}

// DecryptFields opens every envelope and returns the plaintext record.
func (c *Cipher) DecryptFields(ctx context.Context, envs map[string]*Envelope) (map[string]string, error) {
	record := make(map[string]string, len(envs))
	for name, env := range envs {
		v, err := c.DecryptField(ctx, env)
		if err != nil {
			return nil, fmt.Errorf("decrypt field %s: %w", name, err)
		}
		record[name] = v
	}
	return record, nil
}
