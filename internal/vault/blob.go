package vault

import (
	"bytes"
	"errors"
	"fmt"
)

const (
	blobMagic = "SKVB"
	// BlobVersion is the framing version written into every data file.
	BlobVersion   byte = 1
	blobHeaderLen      = len(blobMagic) + 1
)

// ErrMalformedBlob reports a data file whose framing cannot be parsed.
var ErrMalformedBlob = errors.New("malformed data file")

// Blob is the on-disk data file: header | nonce | ciphertext+tag.
type Blob struct {
	Nonce  []byte
	Sealed []byte
}

// BlobHeader returns the fixed header bytes. They are authenticated as
// associated data so the framing cannot be altered undetected.
func BlobHeader() []byte {
	hdr := make([]byte, 0, blobHeaderLen)
	hdr = append(hdr, blobMagic...)
	return append(hdr, BlobVersion)
}

// Encode serialises the blob for writing.
func (b Blob) Encode() []byte {
	out := make([]byte, 0, blobHeaderLen+len(b.Nonce)+len(b.Sealed))
	out = append(out, BlobHeader()...)
	out = append(out, b.Nonce...)
	return append(out, b.Sealed...)
}

// DecodeBlob splits a data file into nonce and sealed payload. nonceSize is
// determined by the cipher recorded in the salt file.
func DecodeBlob(data []byte, nonceSize int) (Blob, error) {
	if nonceSize <= 0 {
		return Blob{}, fmt.Errorf("%w: invalid nonce size %d", ErrMalformedBlob, nonceSize)
	}
	if len(data) < blobHeaderLen+nonceSize+1 {
		return Blob{}, fmt.Errorf("%w: %d bytes is too short", ErrMalformedBlob, len(data))
	}
	if !bytes.Equal(data[:len(blobMagic)], []byte(blobMagic)) {
		return Blob{}, fmt.Errorf("%w: bad magic", ErrMalformedBlob)
	}
	if v := data[len(blobMagic)]; v != BlobVersion {
		return Blob{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedBlob, v)
	}

	rest := data[blobHeaderLen:]
	return Blob{
		Nonce:  bytes.Clone(rest[:nonceSize]),
		Sealed: bytes.Clone(rest[nonceSize:]),
	}, nil
}
