package vault

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Hussein-Mazeh/securekv/krypto"
)

// SaltRecordVersion is the current salt file format version.
const SaltRecordVersion = 1

// KDFConfig describes the key-derivation parameters stored in the salt file.
type KDFConfig struct {
	Name        string `json:"name" validate:"required,eq=argon2id"`
	MemoryMB    uint32 `json:"memoryMB" validate:"min=1,max=4096"`
	Time        uint32 `json:"time" validate:"min=1,max=64"`
	Parallelism uint8  `json:"parallelism" validate:"min=1"`
	KeyLen      uint32 `json:"keyLen" validate:"eq=32"`
}

// SaltRecord is the persisted, immutable input to key derivation. The data
// file can only be opened with the exact record it was sealed under.
type SaltRecord struct {
	Version   int       `json:"version" validate:"eq=1"`
	CreatedAt time.Time `json:"createdAt"`
	Salt      string    `json:"salt" validate:"required,base64"`
	KDF       KDFConfig `json:"kdf"`
	Cipher    string    `json:"cipher" validate:"required,oneof=aes-256-gcm xchacha20-poly1305"`
}

// NewSaltRecord builds a version 1 record around salt.
func NewSaltRecord(salt []byte, params krypto.Argon2Params, cipherID string) SaltRecord {
	return SaltRecord{
		Version:   SaltRecordVersion,
		CreatedAt: time.Now().UTC(),
		Salt:      base64.StdEncoding.EncodeToString(salt),
		KDF: KDFConfig{
			Name:        krypto.KDFArgon2id,
			MemoryMB:    params.MemoryMB,
			Time:        params.Time,
			Parallelism: params.Parallelism,
			KeyLen:      params.KeyLen,
		},
		Cipher: cipherID,
	}
}

// SaltBytes decodes the base64 salt.
func (r SaltRecord) SaltBytes() ([]byte, error) {
	salt, err := base64.StdEncoding.DecodeString(r.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode salt: %w", err)
	}
	if len(salt) < krypto.MinSaltBytes {
		return nil, fmt.Errorf("salt is %d bytes, need at least %d", len(salt), krypto.MinSaltBytes)
	}
	return salt, nil
}

// Params returns the Argon2id parameters recorded in the salt file.
func (r SaltRecord) Params() krypto.Argon2Params {
	return krypto.Argon2Params{
		MemoryMB:    r.KDF.MemoryMB,
		Time:        r.KDF.Time,
		Parallelism: r.KDF.Parallelism,
		KeyLen:      r.KDF.KeyLen,
	}
}
