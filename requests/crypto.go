package requests

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// sensitiveHeaders lists the header names whose values are encrypted at
// rest (spec §3: "Sensitive header values (authorization tokens, cookies)
// are stored encrypted-at-rest; the core treats them opaquely").
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
}

const encryptedPrefix = "enc:v1:"

// headerCipher encrypts/decrypts sensitive header values with AES-GCM.
// The AES key is derived from a caller-supplied master secret via HKDF
// (RFC 5869) rather than used directly, so the same master secret can
// safely seed more than one derived key in the future.
type headerCipher struct {
	aead cipher.AEAD
}

func newHeaderCipher(masterSecret []byte) (*headerCipher, error) {
	if len(masterSecret) == 0 {
		return nil, fmt.Errorf("requests: header encryption key must not be empty")
	}
	kdf := hkdf.New(sha256.New, masterSecret, nil, []byte("request-insurance/headers"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("requests: deriving header encryption key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &headerCipher{aead: aead}, nil
}

func (c *headerCipher) sealSensitive(headers map[string][]string) (map[string][]string, error) {
	out := make(map[string][]string, len(headers))
	for name, values := range headers {
		if !sensitiveHeaders[lowerHeader(name)] {
			out[name] = values
			continue
		}
		sealed := make([]string, len(values))
		for i, v := range values {
			s, err := c.seal(v)
			if err != nil {
				return nil, err
			}
			sealed[i] = s
		}
		out[name] = sealed
	}
	return out, nil
}

func (c *headerCipher) openSensitive(headers map[string][]string) (map[string][]string, error) {
	out := make(map[string][]string, len(headers))
	for name, values := range headers {
		if !sensitiveHeaders[lowerHeader(name)] {
			out[name] = values
			continue
		}
		opened := make([]string, len(values))
		for i, v := range values {
			p, err := c.open(v)
			if err != nil {
				return nil, err
			}
			opened[i] = p
		}
		out[name] = opened
	}
	return out, nil
}

func (c *headerCipher) seal(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	ciphertext := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (c *headerCipher) open(value string) (string, error) {
	if len(value) < len(encryptedPrefix) || value[:len(encryptedPrefix)] != encryptedPrefix {
		// Not a value this cipher ever sealed — pass through unchanged,
		// which keeps rows written before encryption was enabled legible.
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(value[len(encryptedPrefix):])
	if err != nil {
		return "", fmt.Errorf("requests: decoding sealed header: %w", err)
	}
	if len(raw) < c.aead.NonceSize() {
		return "", fmt.Errorf("requests: sealed header too short")
	}
	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("requests: opening sealed header: %w", err)
	}
	return string(plaintext), nil
}

func lowerHeader(name string) string {
	b := []byte(name)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + ('a' - 'A')
		}
	}
	return string(b)
}
