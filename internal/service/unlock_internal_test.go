package service

import (
	"errors"
	"testing"
	"time"

	"github.com/Hussein-Mazeh/securekv/krypto"
	"github.com/Hussein-Mazeh/securekv/store"
)

func TestAccessorsAnswerDuringDerivation(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	deriveKey = func(pw, salt []byte, p krypto.Argon2Params, cipherID string) (*krypto.SecretKey, error) {
		close(entered)
		<-release
		return krypto.DeriveKey(pw, salt, p, cipherID)
	}
	t.Cleanup(func() { deriveKey = krypto.DeriveKey })

	svc := New(Config{
		Paths:  store.Paths{Dir: t.TempDir()},
		Params: krypto.Argon2Params{MemoryMB: 1, Time: 1, Parallelism: 1, KeyLen: krypto.KeyLengthBytes},
	})
	t.Cleanup(svc.Close)

	first := make(chan error, 1)
	go func() { first <- svc.Unlock([]byte("pw")) }()
	<-entered

	answered := make(chan bool, 1)
	go func() {
		_, hasRecord := svc.SaltRecord()
		answered <- svc.IsUnlocked() || svc.Dirty() || hasRecord
	}()
	select {
	case busy := <-answered:
		if busy {
			t.Fatal("store reported unlocked state before derivation finished")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("accessors blocked while the key was being derived")
	}

	second := make(chan error, 1)
	go func() { second <- svc.Unlock([]byte("pw")) }()

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("first Unlock returned error: %v", err)
	}
	if err := <-second; !errors.Is(err, ErrAlreadyUnlocked) {
		t.Fatalf("second Unlock = %v, want ErrAlreadyUnlocked", err)
	}
}
