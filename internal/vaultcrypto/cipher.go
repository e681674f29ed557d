// Package vaultcrypto decrypts and encrypts content blobs with per-blob
// symmetric keys. The key (DEK) is an opaque base64 string handed out by
// the content provider alongside each blob reference.
package vaultcrypto

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/tunevaultapp/tunevault-client/internal/errors"
)

// Cipher seals and opens blobs with XChaCha20-Poly1305.
// The nonce is prepended to the ciphertext.
type Cipher struct{}

// New creates a Cipher.
func New() *Cipher {
	return &Cipher{}
}

// GenerateKey returns a fresh base64-encoded 256-bit DEK.
func (c *Cipher) GenerateKey() (string, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Wrap(err, errors.CodeInternal, "generate key")
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// Decrypt opens a blob with the given DEK.
func (c *Cipher) Decrypt(dek string, ciphertext []byte) ([]byte, error) {
	aead, err := newAEAD(dek)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < aead.NonceSize() {
		return nil, errors.Decrypt("ciphertext shorter than nonce")
	}

	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDecrypt, "open blob")
	}
	return plaintext, nil
}

// Encrypt seals a blob with the given DEK.
func (c *Cipher) Encrypt(dek string, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(dek)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate nonce")
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

func newAEAD(dek string) (cipher.AEAD, error) {
	key, err := base64.StdEncoding.DecodeString(dek)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDecrypt, "decode key")
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, errors.Decrypt("key must be 32 bytes")
	}

	a, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDecrypt, "init cipher")
	}
	return a, nil
}
