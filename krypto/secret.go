package krypto

import (
	"errors"

	"github.com/awnumar/memguard"
)

// SecretKey holds a derived key in guarded memory until Destroy is called.
type SecretKey struct {
	buf *memguard.LockedBuffer
}

// NewSecretKey moves key into a locked buffer. The source slice is wiped.
func NewSecretKey(key []byte) (*SecretKey, error) {
	if len(key) == 0 {
		return nil, errors.New("secret key is empty")
	}
	buf := memguard.NewBufferFromBytes(key)
	if buf.Size() == 0 {
		return nil, errors.New("allocate guarded key buffer")
	}
	return &SecretKey{buf: buf}, nil
}

// Bytes exposes the key material. The slice is only valid until Destroy.
func (k *SecretKey) Bytes() []byte {
	if k == nil || k.buf == nil || !k.buf.IsAlive() {
		return nil
	}
	return k.buf.Bytes()
}

// Alive reports whether the key has not been destroyed yet.
func (k *SecretKey) Alive() bool {
	return k != nil && k.buf != nil && k.buf.IsAlive()
}

// Destroy wipes the key and releases the guarded pages. Safe to call twice.
func (k *SecretKey) Destroy() {
	if k == nil || k.buf == nil {
		return
	}
	k.buf.Destroy()
}

// Wipe overwrites sensitive byte slices in place.
func Wipe(buf []byte) {
	if len(buf) == 0 {
		return
	}
	memguard.WipeBytes(buf)
}
