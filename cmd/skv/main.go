// Command skv opens a password protected key/value store in the terminal.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"github.com/rs/zerolog"

	"github.com/Hussein-Mazeh/securekv/auth"
	"github.com/Hussein-Mazeh/securekv/internal/config"
	"github.com/Hussein-Mazeh/securekv/internal/logging"
	"github.com/Hussein-Mazeh/securekv/internal/service"
)

const cliVersion = "0.1.0"

type userError struct {
	msg string
}

func (e userError) Error() string { return e.msg }

func main() {
	memguard.CatchInterrupt()

	code := 0
	if err := run(os.Args[1:]); err != nil {
		code = handleError(err)
	}
	memguard.Purge()
	os.Exit(code)
}

func run(args []string) error {
	appName := filepath.Base(os.Args[0])
	cfg, rest, err := config.Load(appName, args)
	if err != nil {
		if config.IsHelp(err) {
			fmt.Fprintln(os.Stderr, err)
			return nil
		}
		return userError{msg: err.Error()}
	}
	if cfg.ShowVersion {
		fmt.Println(appName, "version", cliVersion)
		return nil
	}
	if len(rest) != 0 {
		return userError{msg: "unexpected positional arguments"}
	}

	logger, err := logging.New(os.Stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return userError{msg: err.Error()}
	}

	svc := service.New(service.Config{
		Paths:  cfg.Paths(),
		Params: cfg.Argon2Params(),
		Cipher: cfg.Cipher,
		Logger: &logger,
	})
	defer svc.Close()

	in := bufio.NewReader(os.Stdin)
	t := &terminal{
		in:       in,
		out:      os.Stdout,
		errOut:   os.Stderr,
		password: newPasswordPrompt(os.Stdin, in, os.Stderr),
		strict:   cfg.StrictPassword,
		log:      logger,
	}
	if cfg.HIBP {
		t.breach = auth.NewChecker()
	}
	return t.runSessions(svc)
}

// handleError prints err and returns the process exit code: 1 for problems
// the user can fix, 2 for everything else.
func handleError(err error) int {
	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(os.Stderr, uerr.Error())
		return 1
	}

	switch {
	case errors.Is(err, service.ErrCorruptSaltRecord):
		fmt.Fprintf(os.Stderr, "salt file is corrupt; the store cannot be opened: %v\n", err)
		return 1
	case errors.Is(err, io.EOF):
		return 1
	}

	fmt.Fprintf(os.Stderr, "unexpected error: %v\n", err)
	return 2
}

// terminal drives one Service from line based input.
type terminal struct {
	in       *bufio.Reader
	out      io.Writer
	errOut   io.Writer
	password func(prompt string) ([]byte, error)
	breach   breachChecker
	strict   bool // enforce auth.ValidateMasterPassword on new stores
	log      zerolog.Logger
}
