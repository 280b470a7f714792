package vault_test

import (
	"bytes"
	"testing"

	"github.com/Hussein-Mazeh/securekv/internal/vault"
	"github.com/Hussein-Mazeh/securekv/krypto"
)

func TestSaltRecordRoundTripsParams(t *testing.T) {
	salt := bytes.Repeat([]byte{0x5A}, krypto.SaltLengthBytes)
	params := krypto.DefaultArgon2Params()

	rec := vault.NewSaltRecord(salt, params, krypto.CipherXChaCha20Poly1305)
	if rec.Version != vault.SaltRecordVersion {
		t.Fatalf("Version = %d", rec.Version)
	}
	if rec.KDF.Name != krypto.KDFArgon2id {
		t.Fatalf("KDF name = %q", rec.KDF.Name)
	}
	if rec.Params() != params {
		t.Fatalf("Params() = %+v, want %+v", rec.Params(), params)
	}

	got, err := rec.SaltBytes()
	if err != nil {
		t.Fatalf("SaltBytes returned error: %v", err)
	}
	if !bytes.Equal(got, salt) {
		t.Fatalf("SaltBytes = %x, want %x", got, salt)
	}
}

func TestSaltRecordRejectsShortSalt(t *testing.T) {
	rec := vault.NewSaltRecord(make([]byte, 8), krypto.DefaultArgon2Params(), krypto.DefaultCipher)
	if _, err := rec.SaltBytes(); err == nil {
		t.Fatal("expected error for 8-byte salt")
	}
}
