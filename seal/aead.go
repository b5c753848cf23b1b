package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

const (
	// IVSize is the width of the random IV drawn for every Seal call.
	IVSize = 16

	// TagSize is the width of the GCM authentication tag.
	TagSize = 16
)

// ErrOpenFailed is returned for every decryption failure: tag mismatch,
// truncated input, or malformed lengths. Callers must not distinguish
// between these cases.
var ErrOpenFailed = errors.New("authenticated decryption failed")

// Seal encrypts plaintext under a 32-byte key with AES-256-GCM and returns
// the random IV, the ciphertext, and the 16-byte authentication tag as
// separate slices. A fresh IV is drawn from crypto/rand on every call.
func Seal(plaintext, key []byte) (iv, ciphertext, tag []byte, err error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, nil, nil, err
	}

	iv = make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, nil, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	ciphertext = sealed[:len(sealed)-TagSize]
	tag = sealed[len(sealed)-TagSize:]

	return iv, ciphertext, tag, nil
}

// Open authenticates and decrypts a (iv, ciphertext, tag) triple produced by
// Seal. It fails closed: any size mismatch or tag failure returns
// ErrOpenFailed without surfacing partial plaintext.
func Open(iv, ciphertext, tag, key []byte) ([]byte, error) {
	if len(iv) != IVSize || len(tag) != TagSize || len(ciphertext) == 0 {
		return nil, ErrOpenFailed
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+TagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aead.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrOpenFailed
	}

	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, errors.New("seal: key must be 32 bytes")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCMWithNonceSize(block, IVSize)
}
