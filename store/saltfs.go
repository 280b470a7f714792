package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"

	"github.com/Hussein-Mazeh/securekv/internal/vault"
	"github.com/Hussein-Mazeh/securekv/krypto"
)

const (
	saltFilename = "salt.json"
	dataFilename = "data.enc"

	filePerm = 0o600
	dirPerm  = 0o700
)

// ErrCorruptSaltRecord indicates the salt file exists but cannot be trusted.
// Data sealed under the original record is unrecoverable without it.
var ErrCorruptSaltRecord = errors.New("salt record is corrupt")

var validate = validator.New()

// Paths locates the two store artifacts on disk. Explicit file paths win
// over the directory defaults.
type Paths struct {
	Dir      string
	SaltFile string
	DataFile string
}

// SaltPath resolves the salt file path.
func (p Paths) SaltPath() string {
	if p.SaltFile != "" {
		return p.SaltFile
	}
	return filepath.Join(p.Dir, saltFilename)
}

// DataPath resolves the encrypted data file path.
func (p Paths) DataPath() string {
	if p.DataFile != "" {
		return p.DataFile
	}
	return filepath.Join(p.Dir, dataFilename)
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "" {
		return errors.New("store directory not specified")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}

// LoadSaltRecord reads and validates the salt file. A missing file is
// reported as os.ErrNotExist; anything unreadable as ErrCorruptSaltRecord.
func LoadSaltRecord(path string) (vault.SaltRecord, error) {
	var rec vault.SaltRecord

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return rec, err
		}
		return rec, fmt.Errorf("read salt file: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil {
		return vault.SaltRecord{}, fmt.Errorf("%w: decode: %v", ErrCorruptSaltRecord, err)
	}
	if err := ValidateSaltRecord(rec); err != nil {
		return vault.SaltRecord{}, err
	}
	return rec, nil
}

// ValidateSaltRecord checks field presence, parameter ranges and salt length.
func ValidateSaltRecord(rec vault.SaltRecord) error {
	if err := validate.Struct(rec); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSaltRecord, err)
	}
	if _, err := rec.SaltBytes(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorruptSaltRecord, err)
	}
	return nil
}

// LoadOrCreateSalt returns the persisted salt record, creating one with a
// fresh random salt and the given parameters when none exists. An existing
// file is never overwritten; created reports whether this call wrote it.
func LoadOrCreateSalt(path string, params krypto.Argon2Params, cipherID string) (rec vault.SaltRecord, created bool, err error) {
	rec, err = LoadSaltRecord(path)
	if err == nil {
		return rec, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return vault.SaltRecord{}, false, err
	}

	if err := params.Validate(); err != nil {
		return vault.SaltRecord{}, false, fmt.Errorf("default kdf params: %w", err)
	}
	salt, err := krypto.NewRandomSalt(krypto.SaltLengthBytes)
	if err != nil {
		return vault.SaltRecord{}, false, err
	}
	rec = vault.NewSaltRecord(salt, params, cipherID)
	if err := ValidateSaltRecord(rec); err != nil {
		return vault.SaltRecord{}, false, fmt.Errorf("new salt record: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return vault.SaltRecord{}, false, fmt.Errorf("encode salt record: %w", err)
	}

	if err := ensureParent(path); err != nil {
		return vault.SaltRecord{}, false, err
	}
	if err := CreateFile(path, data, filePerm); err != nil {
		if errors.Is(err, os.ErrExist) {
			// Lost a race with another creator; theirs is authoritative.
			rec, err = LoadSaltRecord(path)
			return rec, false, err
		}
		return vault.SaltRecord{}, false, fmt.Errorf("persist salt record: %w", err)
	}
	return rec, true, nil
}
