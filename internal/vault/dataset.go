package vault

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyKey is returned when a dataset key is the empty string.
	ErrEmptyKey = errors.New("dataset key must not be empty")
	// ErrDuplicateKey is returned when a serialized dataset repeats a key.
	ErrDuplicateKey = errors.New("duplicate dataset key")
	// ErrInvalidUTF8 is returned for keys or values that are not valid UTF-8
	// and so cannot survive the JSON encoding unchanged.
	ErrInvalidUTF8 = errors.New("dataset text must be valid UTF-8")
)

// Dataset is an ordered mapping of unique, non-empty keys to string values.
// Iteration order is insertion order; overwriting a key keeps its position.
// The zero value is an empty dataset ready to use.
type Dataset struct {
	keys   []string
	values map[string]string
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{values: make(map[string]string)}
}

// Len returns the number of entries.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Keys returns the keys in insertion order.
func (d *Dataset) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Get returns the value stored under key.
func (d *Dataset) Get(key string) (string, bool) {
	if d == nil || d.values == nil {
		return "", false
	}
	v, ok := d.values[key]
	return v, ok
}

// Set stores value under key, appending new keys at the end.
func (d *Dataset) Set(key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !utf8.ValidString(key) || !utf8.ValidString(value) {
		return fmt.Errorf("%w: key %q", ErrInvalidUTF8, key)
	}
	if d.values == nil {
		d.values = make(map[string]string)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
	return nil
}

// Delete removes key and reports whether it was present.
func (d *Dataset) Delete(key string) bool {
	if d == nil || d.values == nil {
		return false
	}
	if _, ok := d.values[key]; !ok {
		return false
	}
	delete(d.values, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
	return true
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := NewDataset()
	if d == nil {
		return out
	}
	out.keys = make([]string, len(d.keys))
	copy(out.keys, d.keys)
	for k, v := range d.values {
		out.values[k] = v
	}
	return out
}

// Equal reports whether both datasets hold the same pairs in the same order.
func (d *Dataset) Equal(other *Dataset) bool {
	if d.Len() != other.Len() {
		return false
	}
	if d.Len() == 0 {
		return true
	}
	for i, k := range d.keys {
		if other.keys[i] != k || other.values[k] != d.values[k] {
			return false
		}
	}
	return true
}

// Match returns the keys containing query, case-insensitively, sorted.
// An empty query matches every key.
func (d *Dataset) Match(query string) []string {
	query = strings.ToLower(query)
	var out []string
	for _, k := range d.Keys() {
		if query == "" || strings.Contains(strings.ToLower(k), query) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Validate checks the invariants a decoded or caller-built dataset must hold.
func (d *Dataset) Validate() error {
	if d == nil {
		return nil
	}
	if len(d.keys) != len(d.values) {
		return errors.New("dataset index out of sync")
	}
	for _, k := range d.keys {
		if k == "" {
			return ErrEmptyKey
		}
		v, ok := d.values[k]
		if !ok {
			return fmt.Errorf("dataset key %q has no value", k)
		}
		if !utf8.ValidString(k) || !utf8.ValidString(v) {
			return fmt.Errorf("%w: key %q", ErrInvalidUTF8, k)
		}
	}
	return nil
}

// MarshalJSON encodes the dataset as a flat JSON object in insertion order.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("encode key: %w", err)
		}
		vb, err := json.Marshal(d.values[k])
		if err != nil {
			return nil, fmt.Errorf("encode value for %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a flat JSON object of string values, keeping the
// member order. Nested values, empty keys and repeated keys are rejected.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("dataset must be a JSON object")
	}

	out := NewDataset()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read dataset key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("dataset key is not a string")
		}
		if key == "" {
			return ErrEmptyKey
		}
		if _, dup := out.values[key]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}

		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("read value for %q: %w", key, err)
		}
		value, ok := tok.(string)
		if !ok {
			return fmt.Errorf("value for %q is not a string", key)
		}
		out.keys = append(out.keys, key)
		out.values[key] = value
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read dataset end: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after dataset")
	}

	*d = *out
	return nil
}
