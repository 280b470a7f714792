package store

import (
	"errors"
	"fmt"
	"os"
)

// FileReplacer persists a whole file atomically.
type FileReplacer interface {
	Replace(path string, data []byte) error
}

// AtomicReplacer is the production FileReplacer backed by ReplaceFile.
type AtomicReplacer struct{}

// Replace creates the parent directory if needed and swaps in data.
func (AtomicReplacer) Replace(path string, data []byte) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	return ReplaceFile(path, data, filePerm)
}

// ReadDataFile returns the raw encrypted data file. A missing file is
// reported as os.ErrNotExist.
func ReadDataFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("read data file: %w", err)
	}
	return data, nil
}

// DataFileExists reports whether a data file is present at path.
func DataFileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, os.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("stat data file: %w", err)
	}
}
