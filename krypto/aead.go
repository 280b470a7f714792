package krypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// Supported cipher suite identifiers, as recorded in the salt file.
const (
	CipherAES256GCM         = "aes-256-gcm"
	CipherXChaCha20Poly1305 = "xchacha20-poly1305"

	// DefaultCipher is used for newly provisioned stores.
	DefaultCipher = CipherAES256GCM
)

var (
	// ErrAuthentication is returned by Open when the tag does not verify.
	ErrAuthentication = errors.New("message authentication failed")
	// ErrUnknownCipher reports a cipher identifier this build cannot handle.
	ErrUnknownCipher = errors.New("unknown cipher suite")
)

// NonceSize returns the nonce length used by the given cipher suite.
func NonceSize(cipherID string) (int, error) {
	switch cipherID {
	case CipherAES256GCM:
		return 12, nil
	case CipherXChaCha20Poly1305:
		return chacha20poly1305.NonceSizeX, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCipher, cipherID)
	}
}

func newAEAD(cipherID string, key []byte) (cipher.AEAD, error) {
	if len(key) != KeyLengthBytes {
		return nil, fmt.Errorf("%s requires a %d-byte key", cipherID, KeyLengthBytes)
	}

	switch cipherID {
	case CipherAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("create cipher: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("create gcm: %w", err)
		}
		return gcm, nil
	case CipherXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("create xchacha20-poly1305: %w", err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, cipherID)
	}
}

// Seal encrypts plaintext under key with a freshly generated random nonce.
// The returned sealed slice holds ciphertext followed by the tag.
func Seal(cipherID string, key, plaintext, aad []byte) (nonce, sealed []byte, err error) {
	aead, err := newAEAD(cipherID, key)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}

	sealed = aead.Seal(nil, nonce, plaintext, aad)
	return nonce, sealed, nil
}

// Open authenticates and decrypts sealed. Any mismatch in key, nonce,
// ciphertext, tag or aad yields ErrAuthentication and no plaintext.
func Open(cipherID string, key, nonce, sealed, aad []byte) ([]byte, error) {
	aead, err := newAEAD(cipherID, key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, errors.New("invalid nonce size")
	}
	if len(sealed) < aead.Overhead() {
		return nil, ErrAuthentication
	}

	plaintext, err := aead.Open(nil, nonce, sealed, aad)
	if err != nil {
		return nil, ErrAuthentication
	}
	return plaintext, nil
}
