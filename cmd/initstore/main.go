// Command initstore provisions the salt file of a store ahead of first use,
// fixing its KDF cost and cipher. An existing salt file is left untouched.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Hussein-Mazeh/securekv/internal/config"
	"github.com/Hussein-Mazeh/securekv/internal/logging"
	"github.com/Hussein-Mazeh/securekv/store"
)

func main() {
	appName := filepath.Base(os.Args[0])
	cfg, _, err := config.Load(appName, os.Args[1:])
	if err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	path := cfg.Paths().SaltPath()
	rec, created, err := store.LoadOrCreateSalt(path, cfg.Argon2Params(), cfg.Cipher)
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("provision salt file")
	}

	state := "existing"
	if created {
		state = "created"
	}
	fmt.Printf("%s salt file %s\n", state, path)
	fmt.Printf("  cipher: %s\n", rec.Cipher)
	fmt.Printf("  kdf:    %s m=%dMiB t=%d p=%d keyLen=%d\n",
		rec.KDF.Name, rec.KDF.MemoryMB, rec.KDF.Time, rec.KDF.Parallelism, rec.KDF.KeyLen)
	if !created && (rec.Cipher != cfg.Cipher || rec.Params() != cfg.Argon2Params()) {
		logger.Warn().Msg("salt file already exists; requested cipher and KDF settings were not applied")
	}
}
