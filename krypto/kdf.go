package krypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math"

	"golang.org/x/crypto/argon2"
)

const (
	// KDFArgon2id is the only key-derivation algorithm understood by this package.
	KDFArgon2id = "argon2id"

	// MinSaltBytes is the shortest salt accepted for derivation (128 bits).
	MinSaltBytes = 16
	// SaltLengthBytes is the length of newly generated salts.
	SaltLengthBytes = MinSaltBytes

	// KeyLengthBytes is the length of every derived data key.
	KeyLengthBytes = 32

	// MaxMemoryMB and MaxTime cap the Argon2id cost accepted from a salt
	// file or configuration.
	MaxMemoryMB = 4096
	MaxTime     = 64
)

// Argon2Params captures tunable parameters for Argon2id.
type Argon2Params struct {
	MemoryMB    uint32
	Time        uint32
	Parallelism uint8
	KeyLen      uint32
}

// DefaultArgon2Params returns sane defaults for deriving a 256-bit key.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		MemoryMB:    64,
		Time:        3,
		Parallelism: 1,
		KeyLen:      KeyLengthBytes,
	}
}

// Validate reports whether the parameters can drive Argon2id.
func (p Argon2Params) Validate() error {
	if p.KeyLen != KeyLengthBytes {
		return fmt.Errorf("key length must be %d bytes", KeyLengthBytes)
	}
	if p.MemoryMB == 0 {
		return errors.New("memory parameter must be positive")
	}
	if p.MemoryMB > MaxMemoryMB {
		return fmt.Errorf("memory parameter must not exceed %d MiB", MaxMemoryMB)
	}
	if p.Time == 0 {
		return errors.New("time parameter must be positive")
	}
	if p.Time > MaxTime {
		return fmt.Errorf("time parameter must not exceed %d", MaxTime)
	}
	if p.Parallelism == 0 {
		return errors.New("parallelism must be positive")
	}
	return nil
}

// DeriveKeyArgon2id runs Argon2id over password and salt. The caller owns the
// returned slice and should wipe it.
func DeriveKeyArgon2id(password []byte, salt []byte, p Argon2Params) ([]byte, error) {
	if len(password) == 0 {
		return nil, errors.New("password is required")
	}
	if len(salt) < MinSaltBytes {
		return nil, fmt.Errorf("salt must be at least %d bytes", MinSaltBytes)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	memoryKB := uint64(p.MemoryMB) * 1024
	if memoryKB > math.MaxUint32 {
		return nil, fmt.Errorf("memory parameter %d MiB out of range", p.MemoryMB)
	}
	key := argon2.IDKey(password, salt, p.Time, uint32(memoryKB), p.Parallelism, p.KeyLen)
	if uint32(len(key)) != p.KeyLen {
		Wipe(key)
		return nil, fmt.Errorf("derived key has unexpected length %d", len(key))
	}
	return key, nil
}

// DeriveKey turns a password into the data key for the given cipher suite.
// The Argon2id output is stretched through HKDF so that each suite gets an
// independent key; the intermediate material is wiped before returning.
func DeriveKey(password []byte, salt []byte, p Argon2Params, cipherID string) (*SecretKey, error) {
	if _, err := NonceSize(cipherID); err != nil {
		return nil, err
	}

	master, err := DeriveKeyArgon2id(password, salt, p)
	if err != nil {
		return nil, err
	}
	defer Wipe(master)

	dataKey, err := HKDFSHA256(master, salt, dataKeyInfo(cipherID), KeyLengthBytes)
	if err != nil {
		return nil, fmt.Errorf("expand data key: %w", err)
	}
	return NewSecretKey(dataKey)
}

func dataKeyInfo(cipherID string) []byte {
	return []byte("securekv/data-key/v1/" + cipherID)
}

// NewRandomSalt returns a cryptographically secure random salt of length n bytes.
// Lengths below MinSaltBytes are raised to it.
func NewRandomSalt(n int) ([]byte, error) {
	if n < MinSaltBytes {
		n = SaltLengthBytes
	}
	salt := make([]byte, n)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}
