// Package config loads command configuration from flags, the environment and
// an optional .env file. Command line options take precedence over the
// environment, which takes precedence over .env values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	flags "github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"

	"github.com/Hussein-Mazeh/securekv/krypto"
	"github.com/Hussein-Mazeh/securekv/store"
)

const (
	defaultDir      = "securekv"
	defaultLogLevel = "warn"
	defaultEnvFile  = ".env"
)

// Config holds the settings shared by the securekv commands.
type Config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	Dir         string `short:"d" long:"dir" env:"SKV_DIR" description:"Directory holding salt.json and data.enc" validate:"required"`
	SaltFile    string `long:"salt-file" env:"SKV_SALT_FILE" description:"Override path of the salt file"`
	DataFile    string `long:"data-file" env:"SKV_DATA_FILE" description:"Override path of the encrypted data file"`

	LogLevel string `long:"log-level" env:"SKV_LOG_LEVEL" description:"Logging level {trace, debug, info, warn, error}" validate:"oneof=trace debug info warn error"`
	LogJSON  bool   `long:"log-json" env:"SKV_LOG_JSON" description:"Emit logs as JSON"`

	HIBP           bool `long:"hibp" env:"SKV_HIBP" description:"Check new passwords against the Have I Been Pwned range API"`
	StrictPassword bool `long:"strict-password" env:"SKV_STRICT_PASSWORD" description:"Refuse new store passwords that break the length and character policy"`

	// Applied only when a store is created; existing stores keep their recorded values.
	Cipher         string `long:"cipher" env:"SKV_CIPHER" description:"AEAD suite for new stores {aes-256-gcm, xchacha20-poly1305}" validate:"oneof=aes-256-gcm xchacha20-poly1305"`
	KDFMemoryMB    uint32 `long:"kdf-memory" env:"SKV_KDF_MEMORY_MB" description:"Argon2id memory cost in MiB for new stores" validate:"min=8,max=4096"`
	KDFTime        uint32 `long:"kdf-time" env:"SKV_KDF_TIME" description:"Argon2id iterations for new stores" validate:"min=1,max=64"`
	KDFParallelism uint8  `long:"kdf-parallelism" env:"SKV_KDF_PARALLELISM" description:"Argon2id lanes for new stores" validate:"min=1"`
}

var validate = validator.New()

// Default returns the configuration used when nothing is specified.
func Default() Config {
	params := krypto.DefaultArgon2Params()
	return Config{
		Dir:            defaultDir,
		LogLevel:       defaultLogLevel,
		Cipher:         krypto.DefaultCipher,
		KDFMemoryMB:    params.MemoryMB,
		KDFTime:        params.Time,
		KDFParallelism: params.Parallelism,
	}
}

// Load reads .env from the working directory when present, then parses
// args. The remaining positional arguments are returned. Asking for help
// returns a *flags.Error of type flags.ErrHelp.
func Load(appName string, args []string) (*Config, []string, error) {
	if err := loadEnvFile(defaultEnvFile); err != nil {
		return nil, nil, err
	}

	cfg := Default()
	parser := flags.NewNamedParser(appName, flags.HelpFlag|flags.PassDoubleDash)
	if _, err := parser.AddGroup("Application Options", "", &cfg); err != nil {
		return nil, nil, fmt.Errorf("build flag parser: %w", err)
	}

	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.Dir = cleanAndExpandPath(cfg.Dir)
	cfg.SaltFile = cleanAndExpandPath(cfg.SaltFile)
	cfg.DataFile = cleanAndExpandPath(cfg.DataFile)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, rest, nil
}

// IsHelp reports whether err came from a -h/--help request.
func IsHelp(err error) bool {
	var ferr *flags.Error
	return errors.As(err, &ferr) && ferr.Type == flags.ErrHelp
}

// Validate checks field constraints and the KDF cost settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.Argon2Params().Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Paths returns the resolved store file locations.
func (c Config) Paths() store.Paths {
	return store.Paths{Dir: c.Dir, SaltFile: c.SaltFile, DataFile: c.DataFile}
}

// Argon2Params returns the KDF cost used when creating a new store.
func (c Config) Argon2Params() krypto.Argon2Params {
	return krypto.Argon2Params{
		MemoryMB:    c.KDFMemoryMB,
		Time:        c.KDFTime,
		Parallelism: c.KDFParallelism,
		KeyLen:      krypto.KeyLengthBytes,
	}
}

func loadEnvFile(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// cleanAndExpandPath expands environment variables and a leading ~ in path.
func cleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.Replace(path, "~", home, 1)
		}
	}
	return filepath.Clean(os.ExpandEnv(path))
}
