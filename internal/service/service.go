package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Hussein-Mazeh/securekv/internal/vault"
	"github.com/Hussein-Mazeh/securekv/krypto"
	"github.com/Hussein-Mazeh/securekv/store"
)

// deriveKey is swapped in tests to hold a derivation open.
var deriveKey = krypto.DeriveKey

// Config wires a Service to its files and collaborators.
type Config struct {
	Paths store.Paths
	// Params and Cipher apply only when the salt file is created on first
	// unlock; existing stores use what their salt file records.
	Params krypto.Argon2Params
	Cipher string
	// Replacer defaults to store.AtomicReplacer.
	Replacer store.FileReplacer
	Logger   *zerolog.Logger
}

// Service is the encrypted store session. It starts Locked; Unlock moves it
// to Unlocked holding the derived key and the decrypted dataset, Lock wipes
// both. All methods are safe for concurrent use.
type Service struct {
	paths    store.Paths
	params   krypto.Argon2Params
	cipher   string
	replacer store.FileReplacer
	log      zerolog.Logger

	unlockMu sync.Mutex // serializes Unlock

	mu     sync.Mutex
	key    *krypto.SecretKey // nil while locked
	record vault.SaltRecord
	data   *vault.Dataset
	dirty  bool
	saving bool
	gen    uint64 // bumped by every Write and Lock
}

// New returns a locked service bound to cfg.
func New(cfg Config) *Service {
	s := &Service{
		paths:    cfg.Paths,
		params:   cfg.Params,
		cipher:   cfg.Cipher,
		replacer: cfg.Replacer,
	}
	if s.params == (krypto.Argon2Params{}) {
		s.params = krypto.DefaultArgon2Params()
	}
	if s.cipher == "" {
		s.cipher = krypto.DefaultCipher
	}
	if s.replacer == nil {
		s.replacer = store.AtomicReplacer{}
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "store").Logger()
	} else {
		s.log = zerolog.Nop()
	}
	return s
}

// Unlock loads (or on first run creates) the salt record, derives the key and
// decrypts the data file. The password buffer is wiped once the key has been
// derived, whatever the outcome. With no data file yet the store opens with
// an empty dataset. A data file without its salt file is reported as
// ErrCorruptSaltRecord and no new salt is written.
//
// Unlock calls are serialized, but key derivation runs without holding the
// state lock so accessors such as IsUnlocked answer while it is in progress.
func (s *Service) Unlock(password []byte) error {
	defer krypto.Wipe(password)

	s.unlockMu.Lock()
	defer s.unlockMu.Unlock()

	if s.IsUnlocked() {
		return ErrAlreadyUnlocked
	}
	if len(password) == 0 {
		return ErrEmptyPassword
	}

	rec, err := s.loadSalt()
	if err != nil {
		return err
	}

	salt, err := rec.SaltBytes()
	if err != nil {
		return fmt.Errorf("load salt record: %w: %v", ErrCorruptSaltRecord, err)
	}

	key, err := deriveKey(password, salt, rec.Params(), rec.Cipher)
	krypto.Wipe(password)
	if err != nil {
		return fmt.Errorf("derive key: %w", err)
	}

	raw, err := store.ReadDataFile(s.paths.DataPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.setUnlocked(key, rec, vault.NewDataset())
			s.log.Info().Str("path", s.paths.DataPath()).Msg("no data file; unlocked empty store")
			return nil
		}
		key.Destroy()
		return err
	}

	data, err := openBlob(key, rec, raw)
	if err != nil {
		key.Destroy()
		s.log.Debug().Err(err).Msg("unlock rejected")
		return ErrWrongPasswordOrCorruptFile
	}

	s.setUnlocked(key, rec, data)
	s.log.Info().Int("entries", data.Len()).Msg("store unlocked")
	return nil
}

// loadSalt returns the salt record, creating it only when there is no data
// file that would have been sealed under a previous one.
func (s *Service) loadSalt() (vault.SaltRecord, error) {
	saltPath := s.paths.SaltPath()
	rec, err := store.LoadSaltRecord(saltPath)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return vault.SaltRecord{}, fmt.Errorf("load salt record: %w", err)
	}

	hasData, err := store.DataFileExists(s.paths.DataPath())
	if err != nil {
		return vault.SaltRecord{}, err
	}
	if hasData {
		s.log.Error().Str("path", saltPath).Msg("salt file missing for existing data file")
		return vault.SaltRecord{}, fmt.Errorf("load salt record: %w: %s is missing", ErrCorruptSaltRecord, saltPath)
	}

	rec, created, err := store.LoadOrCreateSalt(saltPath, s.params, s.cipher)
	if err != nil {
		return vault.SaltRecord{}, fmt.Errorf("load salt record: %w", err)
	}
	if created {
		s.log.Info().Str("path", saltPath).Str("cipher", rec.Cipher).Msg("created salt record")
	}
	return rec, nil
}

func (s *Service) setUnlocked(key *krypto.SecretKey, rec vault.SaltRecord, data *vault.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	s.record = rec
	s.data = data
	s.dirty = false
}

func openBlob(key *krypto.SecretKey, rec vault.SaltRecord, raw []byte) (*vault.Dataset, error) {
	nonceSize, err := krypto.NonceSize(rec.Cipher)
	if err != nil {
		return nil, err
	}
	blob, err := vault.DecodeBlob(raw, nonceSize)
	if err != nil {
		return nil, err
	}

	plaintext, err := krypto.Open(rec.Cipher, key.Bytes(), blob.Nonce, blob.Sealed, vault.BlobHeader())
	if err != nil {
		return nil, err
	}
	defer krypto.Wipe(plaintext)

	data := vault.NewDataset()
	if err := json.Unmarshal(plaintext, data); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return data, nil
}

// Read returns a copy of the current dataset.
func (s *Service) Read() (*vault.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return nil, ErrLocked
	}
	return s.data.Clone(), nil
}

// Write replaces the dataset, seals it under a fresh nonce and atomically
// persists it. Only one save may be in flight. On a persistence failure the
// new dataset stays in memory, the store stays dirty and a *SaveError is
// returned.
func (s *Service) Write(data *vault.Dataset) error {
	if data == nil {
		data = vault.NewDataset()
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}

	s.mu.Lock()
	if s.key == nil {
		s.mu.Unlock()
		return ErrLocked
	}
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInProgress
	}

	s.data = data.Clone()
	s.dirty = true
	s.gen++
	gen := s.gen

	encoded, err := s.seal()
	if err != nil {
		s.mu.Unlock()
		s.log.Error().Err(err).Msg("seal dataset")
		return err
	}
	s.saving = true
	path := s.paths.DataPath()
	s.mu.Unlock()

	err = s.replacer.Replace(path, encoded)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false

	if err != nil {
		s.log.Warn().Err(err).Str("path", path).Msg("save failed; changes kept in memory")
		return &SaveError{Op: "persist", Err: err}
	}
	if s.gen == gen {
		s.dirty = false
	}
	s.log.Debug().Str("path", path).Int("bytes", len(encoded)).Msg("dataset saved")
	return nil
}

// seal serialises and encrypts the current dataset. Callers hold mu.
func (s *Service) seal() ([]byte, error) {
	payload, err := json.Marshal(s.data)
	if err != nil {
		return nil, &SaveError{Op: "encode", Err: err}
	}
	defer krypto.Wipe(payload)

	nonce, sealed, err := krypto.Seal(s.record.Cipher, s.key.Bytes(), payload, vault.BlobHeader())
	if err != nil {
		return nil, &SaveError{Op: "seal", Err: err}
	}
	return vault.Blob{Nonce: nonce, Sealed: sealed}.Encode(), nil
}

// Lock wipes the key and drops the dataset, discarding unsaved changes.
// It never persists anything. Locking a locked store is a no-op.
func (s *Service) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key == nil {
		return
	}
	if s.dirty {
		s.log.Warn().Msg("locking with unsaved changes")
	}
	s.key.Destroy()
	s.key = nil
	s.data = nil
	s.dirty = false
	s.gen++
	s.log.Info().Msg("store locked")
}

// Close locks the store; call it on process exit.
func (s *Service) Close() {
	s.Lock()
}

// IsUnlocked reports whether a key is held.
func (s *Service) IsUnlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key != nil
}

// Dirty reports whether the last Write has not been persisted.
func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// HasData reports whether an encrypted data file already exists. Callers use
// it to tell a first run apart before prompting for a password.
func (s *Service) HasData() (bool, error) {
	return store.DataFileExists(s.paths.DataPath())
}

// SaltRecord returns the record the current session was derived from.
func (s *Service) SaltRecord() (vault.SaltRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return vault.SaltRecord{}, false
	}
	return s.record, true
}

// Paths returns the file locations the service is bound to.
func (s *Service) Paths() store.Paths {
	return s.paths
}
