package krypto_test

import (
	"bytes"
	"testing"

	"github.com/Hussein-Mazeh/securekv/krypto"
)

func cheapParams() krypto.Argon2Params {
	return krypto.Argon2Params{MemoryMB: 1, Time: 1, Parallelism: 1, KeyLen: krypto.KeyLengthBytes}
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, krypto.SaltLengthBytes)

	k1, err := krypto.DeriveKey([]byte("correct horse"), salt, cheapParams(), krypto.CipherAES256GCM)
	if err != nil {
		t.Fatalf("DeriveKey returned error: %v", err)
	}
	t.Cleanup(k1.Destroy)
	k2, err := krypto.DeriveKey([]byte("correct horse"), salt, cheapParams(), krypto.CipherAES256GCM)
	if err != nil {
		t.Fatalf("DeriveKey returned error: %v", err)
	}
	t.Cleanup(k2.Destroy)

	if len(k1.Bytes()) != krypto.KeyLengthBytes {
		t.Fatalf("expected %d-byte key, got %d", krypto.KeyLengthBytes, len(k1.Bytes()))
	}
	if !bytes.Equal(k1.Bytes(), k2.Bytes()) {
		t.Fatal("same password and salt produced different keys")
	}
}

func TestDeriveKeyVariesWithInputs(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, krypto.SaltLengthBytes)
	otherSalt := bytes.Repeat([]byte{0x02}, krypto.SaltLengthBytes)

	base, err := krypto.DeriveKey([]byte("pw"), salt, cheapParams(), krypto.CipherAES256GCM)
	if err != nil {
		t.Fatalf("DeriveKey returned error: %v", err)
	}
	t.Cleanup(base.Destroy)

	stronger := cheapParams()
	stronger.Time = 2

	cases := []struct {
		name     string
		password string
		salt     []byte
		params   krypto.Argon2Params
		cipher   string
	}{
		{"password", "pw2", salt, cheapParams(), krypto.CipherAES256GCM},
		{"salt", "pw", otherSalt, cheapParams(), krypto.CipherAES256GCM},
		{"cost", "pw", salt, stronger, krypto.CipherAES256GCM},
		{"cipher", "pw", salt, cheapParams(), krypto.CipherXChaCha20Poly1305},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := krypto.DeriveKey([]byte(tc.password), tc.salt, tc.params, tc.cipher)
			if err != nil {
				t.Fatalf("DeriveKey returned error: %v", err)
			}
			defer k.Destroy()
			if bytes.Equal(k.Bytes(), base.Bytes()) {
				t.Fatalf("changing the %s did not change the key", tc.name)
			}
		})
	}
}

func TestDeriveKeyRejectsBadInput(t *testing.T) {
	salt := bytes.Repeat([]byte{0x01}, krypto.SaltLengthBytes)

	cases := []struct {
		name     string
		password []byte
		salt     []byte
		params   krypto.Argon2Params
		cipher   string
	}{
		{"empty password", nil, salt, cheapParams(), krypto.CipherAES256GCM},
		{"short salt", []byte("pw"), salt[:12], cheapParams(), krypto.CipherAES256GCM},
		{"zero memory", []byte("pw"), salt, krypto.Argon2Params{Time: 1, Parallelism: 1, KeyLen: 32}, krypto.CipherAES256GCM},
		{"zero time", []byte("pw"), salt, krypto.Argon2Params{MemoryMB: 1, Parallelism: 1, KeyLen: 32}, krypto.CipherAES256GCM},
		{"memory over cap", []byte("pw"), salt, krypto.Argon2Params{MemoryMB: krypto.MaxMemoryMB + 1, Time: 1, Parallelism: 1, KeyLen: 32}, krypto.CipherAES256GCM},
		{"memory wraps to zero KiB", []byte("pw"), salt, krypto.Argon2Params{MemoryMB: 4194304, Time: 1, Parallelism: 1, KeyLen: 32}, krypto.CipherAES256GCM},
		{"time over cap", []byte("pw"), salt, krypto.Argon2Params{MemoryMB: 1, Time: krypto.MaxTime + 1, Parallelism: 1, KeyLen: 32}, krypto.CipherAES256GCM},
		{"wrong key length", []byte("pw"), salt, krypto.Argon2Params{MemoryMB: 1, Time: 1, Parallelism: 1, KeyLen: 16}, krypto.CipherAES256GCM},
		{"unknown cipher", []byte("pw"), salt, cheapParams(), "rot13"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			k, err := krypto.DeriveKey(tc.password, tc.salt, tc.params, tc.cipher)
			if err == nil {
				k.Destroy()
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestArgon2ParamsValidateBounds(t *testing.T) {
	p := krypto.Argon2Params{MemoryMB: krypto.MaxMemoryMB, Time: krypto.MaxTime, Parallelism: 1, KeyLen: 32}
	if err := p.Validate(); err != nil {
		t.Fatalf("params at the cap rejected: %v", err)
	}
	for _, mem := range []uint32{krypto.MaxMemoryMB + 1, 65536, 4194304} {
		p.MemoryMB = mem
		if err := p.Validate(); err == nil {
			t.Fatalf("MemoryMB %d accepted", mem)
		}
	}
}

func TestNewRandomSalt(t *testing.T) {
	a, err := krypto.NewRandomSalt(0)
	if err != nil {
		t.Fatalf("NewRandomSalt returned error: %v", err)
	}
	if len(a) != krypto.SaltLengthBytes {
		t.Fatalf("expected %d bytes, got %d", krypto.SaltLengthBytes, len(a))
	}
	b, err := krypto.NewRandomSalt(32)
	if err != nil {
		t.Fatalf("NewRandomSalt returned error: %v", err)
	}
	if len(b) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(b))
	}
	if bytes.Equal(a, b[:len(a)]) {
		t.Fatal("two salts share a prefix; rng looks broken")
	}
}

func TestSecretKeyDestroy(t *testing.T) {
	raw := bytes.Repeat([]byte{0xAA}, 32)
	k, err := krypto.NewSecretKey(raw)
	if err != nil {
		t.Fatalf("NewSecretKey returned error: %v", err)
	}
	if !bytes.Equal(raw, make([]byte, 32)) {
		t.Fatal("source slice was not wiped")
	}
	if !k.Alive() || len(k.Bytes()) != 32 {
		t.Fatal("expected a live 32-byte key")
	}
	k.Destroy()
	k.Destroy()
	if k.Alive() || k.Bytes() != nil {
		t.Fatal("destroyed key is still readable")
	}
}
