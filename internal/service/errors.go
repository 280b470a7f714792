package service

import (
	"errors"

	"github.com/Hussein-Mazeh/securekv/store"
)

var (
	// ErrCorruptSaltRecord is returned by Unlock when the salt file is unusable.
	ErrCorruptSaltRecord = store.ErrCorruptSaltRecord
	// ErrWrongPasswordOrCorruptFile is returned by Unlock when the data file
	// does not authenticate. The two causes are not told apart.
	ErrWrongPasswordOrCorruptFile = errors.New("wrong password or corrupt data file")
	// ErrAlreadyUnlocked is returned by Unlock on an unlocked store.
	ErrAlreadyUnlocked = errors.New("store already unlocked")
	// ErrLocked is returned by Read and Write on a locked store.
	ErrLocked = errors.New("store locked")
	// ErrSaveInProgress is returned by Write while another save is persisting.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrInvalidDataset is returned by Write for datasets breaking key rules.
	ErrInvalidDataset = errors.New("invalid dataset")
	// ErrEmptyPassword is returned by Unlock for an empty password.
	ErrEmptyPassword = errors.New("password is required")
)

// SaveError reports a failed Write. The in-memory dataset is kept and the
// store stays dirty so the caller can retry.
type SaveError struct {
	Op  string
	Err error
}

func (e *SaveError) Error() string {
	return "save " + e.Op + ": " + e.Err.Error()
}

func (e *SaveError) Unwrap() error { return e.Err }
