package main

import (
	"bytes"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Hussein-Mazeh/securekv/internal/service"
	"github.com/Hussein-Mazeh/securekv/internal/vault"
	"github.com/Hussein-Mazeh/securekv/krypto"
	"github.com/Hussein-Mazeh/securekv/store"
)

func TestInspectShowsFramingWithoutPassword(t *testing.T) {
	paths := store.Paths{Dir: t.TempDir()}
	svc := service.New(service.Config{
		Paths:  paths,
		Params: krypto.Argon2Params{MemoryMB: 1, Time: 1, Parallelism: 1, KeyLen: krypto.KeyLengthBytes},
		Cipher: krypto.CipherXChaCha20Poly1305,
	})
	if err := svc.Unlock([]byte("pw")); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	data := vault.NewDataset()
	if err := data.Set("secret", "do-not-print"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := svc.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	svc.Close()

	raw, err := os.ReadFile(paths.DataPath())
	if err != nil {
		t.Fatalf("read data file: %v", err)
	}
	nonce := hex.EncodeToString(raw[5 : 5+24])

	var out bytes.Buffer
	if err := inspect(&out, paths); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	got := out.String()
	for _, want := range []string{"xchacha20-poly1305", "nonce:     " + nonce, "argon2id m=1MiB t=1 p=1"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "do-not-print") || strings.Contains(got, "secret") {
		t.Fatalf("inspect leaked plaintext:\n%s", got)
	}
}

func TestInspectMissingFiles(t *testing.T) {
	paths := store.Paths{Dir: t.TempDir()}
	if err := inspect(&bytes.Buffer{}, paths); err == nil {
		t.Fatal("expected error without salt file")
	}

	if _, _, err := store.LoadOrCreateSalt(paths.SaltPath(), krypto.DefaultArgon2Params(), krypto.DefaultCipher); err != nil {
		t.Fatalf("LoadOrCreateSalt: %v", err)
	}
	var out bytes.Buffer
	if err := inspect(&out, paths); err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out.String(), "no data file at "+filepath.Join(paths.Dir, "data.enc")) {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}
