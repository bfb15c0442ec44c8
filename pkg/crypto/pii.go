// Package crypto holds the field-level codec used for personal data in audit logs.
package crypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// XChaChaCodec encrypts strings with XChaCha20-Poly1305 and a random nonce.
// Output is base64(nonce || ciphertext). Empty strings pass through unchanged.
type XChaChaCodec struct {
	aead cipher.AEAD
}

func NewXChaChaCodec(key []byte) (*XChaChaCodec, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init pii codec: %w", err)
	}
	return &XChaChaCodec{aead: aead}, nil
}

// NewXChaChaCodecFromHex builds a codec from a hex-encoded 32 byte key
func NewXChaChaCodecFromHex(hexKey string) (*XChaChaCodec, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode pii key: %w", err)
	}
	return NewXChaChaCodec(key)
}

// GenerateKey returns a random key suitable for NewXChaChaCodec
func GenerateKey() ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *XChaChaCodec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *XChaChaCodec) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}

	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("decrypt pii field: %w", err)
	}
	return string(plain), nil
}
