package destination

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	nonceSize = 12 // standard GCM nonce length
	keySize   = 32

	// sealedPrefix marks a stored secret as AES-GCM ciphertext.
	sealedPrefix = "enc:v1:"
	hkdfInfo     = "hookrelay destination secret v1"
)

// ErrNoKey is returned when a sealed secret is read without a master key.
var ErrNoKey = errors.New("destination secret is encrypted but no master key is configured")

// DeriveKey derives a 32-byte AES-256 key from the configured master key.
func DeriveKey(master string) ([]byte, error) {
	if master == "" {
		return nil, errors.New("empty master key")
	}
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(master), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf: %w", err)
	}
	return key, nil
}

// Seal encrypts a plaintext secret for storage. A nil key stores the
// secret as is.
func Seal(plaintext string, key []byte) (string, error) {
	if key == nil {
		return plaintext, nil
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// nonce is prepended to ciphertext
	ct := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal. Values without the sealed prefix are returned
// unchanged so plaintext rows keep working after a key is introduced.
func Open(stored string, key []byte) (string, error) {
	encoded, ok := strings.CutPrefix(stored, sealedPrefix)
	if !ok {
		return stored, nil
	}
	if key == nil {
		return "", ErrNoKey
	}

	ct, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed secret: %w", err)
	}
	if len(ct) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, ct[:nonceSize], ct[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}
	return string(plaintext), nil
}

// IsSealed reports whether a stored value is ciphertext.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
