// Command inspect prints the salt record and the framing of the encrypted
// data file without asking for a password or decrypting anything.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Hussein-Mazeh/securekv/internal/config"
	"github.com/Hussein-Mazeh/securekv/internal/vault"
	"github.com/Hussein-Mazeh/securekv/krypto"
	"github.com/Hussein-Mazeh/securekv/store"
)

func main() {
	appName := filepath.Base(os.Args[0])
	cfg, _, err := config.Load(appName, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if config.IsHelp(err) {
			return
		}
		os.Exit(1)
	}

	if err := inspect(os.Stdout, cfg.Paths()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func inspect(w io.Writer, paths store.Paths) error {
	rec, err := store.LoadSaltRecord(paths.SaltPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no salt file at %s", paths.SaltPath())
		}
		return err
	}

	fmt.Fprintf(w, "salt file %s\n", paths.SaltPath())
	fmt.Fprintf(w, "  version:   %d\n", rec.Version)
	fmt.Fprintf(w, "  created:   %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  cipher:    %s\n", rec.Cipher)
	fmt.Fprintf(w, "  kdf:       %s m=%dMiB t=%d p=%d keyLen=%d\n",
		rec.KDF.Name, rec.KDF.MemoryMB, rec.KDF.Time, rec.KDF.Parallelism, rec.KDF.KeyLen)
	fmt.Fprintf(w, "  salt:      %s\n", rec.Salt)

	raw, err := store.ReadDataFile(paths.DataPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(w, "no data file at %s\n", paths.DataPath())
			return nil
		}
		return err
	}

	nonceSize, err := krypto.NonceSize(rec.Cipher)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "data file %s (%d bytes)\n", paths.DataPath(), len(raw))
	blob, err := vault.DecodeBlob(raw, nonceSize)
	if err != nil {
		fmt.Fprintf(w, "  framing:   %v\n", err)
		return nil
	}
	fmt.Fprintf(w, "  version:   %d\n", vault.BlobVersion)
	fmt.Fprintf(w, "  nonce:     %s\n", hex.EncodeToString(blob.Nonce))
	fmt.Fprintf(w, "  sealed:    %d bytes (ciphertext and tag)\n", len(blob.Sealed))
	return nil
}
