// Package crypto is the encryption boundary for applicant data. Nothing past
// this package ever sees plaintext: callers hand in JSON-serializable values
// and get back opaque ciphertext strings suitable for the record store.
package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrDecrypt covers every decrypt failure: bad encoding, truncation, wrong
// key, tampering. Callers on read paths translate it to not-found so the
// external response gives no oracle about which it was.
var ErrDecrypt = errors.New("crypto: decrypt failed")

const keyLen = chacha20poly1305.KeySize

// Service seals JSON payloads with XChaCha20-Poly1305. The 24-byte nonce is
// random per call and prefixed to the ciphertext, so output is never
// reproducible across calls.
type Service struct {
	key []byte
}

// New validates and decodes the base64 key. A key of the wrong shape is a
// boot-time configuration error; no Service is returned.
func New(encodedKey string) (*Service, error) {
	if encodedKey == "" {
		return nil, fmt.Errorf("crypto: key is required")
	}
	key, err := decodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: key is not valid base64: %w", err)
	}
	if len(key) != keyLen {
		return nil, fmt.Errorf("crypto: key must be %d bytes, got %d", keyLen, len(key))
	}
	return &Service{key: key}, nil
}

func decodeKey(encoded string) ([]byte, error) {
	if decoded, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return decoded, nil
	}
	return base64.RawURLEncoding.DecodeString(encoded)
}

// Encrypt marshals v to JSON and seals it. The result is base64 over
// nonce||ciphertext||tag.
func (s *Service) Encrypt(v any) (string, error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("crypto: marshal payload: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", fmt.Errorf("crypto: init cipher: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("crypto: generate nonce: %w", err)
	}

	sealed := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	sealed = append(sealed, nonce...)
	sealed = append(sealed, aead.Seal(nil, nonce, plaintext, nil)...)

	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt and unmarshals the plaintext
// into out. out is only written after a fully successful open, so a failed
// decrypt never leaves partial data behind.
func (s *Service) Decrypt(ciphertext string, out any) error {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return fmt.Errorf("%w: invalid encoding", ErrDecrypt)
	}
	if len(sealed) < chacha20poly1305.NonceSizeX {
		return fmt.Errorf("%w: truncated", ErrDecrypt)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return fmt.Errorf("crypto: init cipher: %w", err)
	}

	nonce := sealed[:chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, sealed[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}

	if err := json.Unmarshal(plaintext, out); err != nil {
		return fmt.Errorf("%w: payload corrupt", ErrDecrypt)
	}
	return nil
}
