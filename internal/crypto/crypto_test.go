package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	svc, err := New(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	return svc
}

func TestNewRejectsBadKeys(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"not base64", "!!!definitely not base64!!!"},
		{"too short", base64.StdEncoding.EncodeToString(make([]byte, 16))},
		{"too long", base64.StdEncoding.EncodeToString(make([]byte, 64))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.key)
			assert.Error(t, err)
		})
	}
}

func TestNewAcceptsRawURLEncoding(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	_, err = New(base64.RawURLEncoding.EncodeToString(key))
	assert.NoError(t, err)
}

func TestRoundTrip(t *testing.T) {
	svc := newService(t)

	payload := map[string]any{
		"personalInfo": map[string]any{
			"firstName": "Jean",
			"lastName":  "Dupont",
		},
		"loanDetails": map[string]any{
			"loanAmount": 5000,
			"loanTerm":   24,
		},
		"termsAccepted": true,
		"nested":        []any{"a", 1.5, nil},
	}

	ciphertext, err := svc.Encrypt(payload)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, svc.Decrypt(ciphertext, &got))

	assert.Equal(t, "Jean", got["personalInfo"].(map[string]any)["firstName"])
	assert.Equal(t, float64(5000), got["loanDetails"].(map[string]any)["loanAmount"])
	assert.Equal(t, true, got["termsAccepted"])
}

func TestEncryptIsNotDeterministic(t *testing.T) {
	svc := newService(t)

	a, err := svc.Encrypt("same payload")
	require.NoError(t, err)
	b, err := svc.Encrypt("same payload")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "two encryptions of the same payload must differ")
}

func TestDecryptRejectsTampering(t *testing.T) {
	svc := newService(t)

	ciphertext, err := svc.Encrypt(map[string]string{"name": "Jean"})
	require.NoError(t, err)

	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	// Flip one bit in the middle of the ciphertext body.
	sealed[len(sealed)/2] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(sealed)

	var out map[string]string
	err = svc.Decrypt(tampered, &out)
	assert.ErrorIs(t, err, ErrDecrypt)
	assert.Empty(t, out, "failed decrypt must not populate the target")
}

func TestDecryptRejectsMalformedInput(t *testing.T) {
	svc := newService(t)

	for name, input := range map[string]string{
		"empty":      "",
		"not base64": "%%%",
		"truncated":  base64.StdEncoding.EncodeToString([]byte("short")),
	} {
		t.Run(name, func(t *testing.T) {
			var out any
			assert.ErrorIs(t, svc.Decrypt(input, &out), ErrDecrypt)
		})
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	ciphertext, err := newService(t).Encrypt("secret")
	require.NoError(t, err)

	var out string
	err = newService(t).Decrypt(ciphertext, &out)
	if !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt for wrong key, got %v", err)
	}
}
