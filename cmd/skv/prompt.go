package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/term"

	"github.com/Hussein-Mazeh/securekv/auth"
	"github.com/Hussein-Mazeh/securekv/internal/service"
	"github.com/Hussein-Mazeh/securekv/krypto"
)

const (
	maxUnlockAttempts = 3
	breachTimeout     = 5 * time.Second
)

type breachChecker interface {
	Check(ctx context.Context, pw []byte) (auth.HIBPResult, error)
}

// newPasswordPrompt reads passwords without echo from a terminal, or one
// line at a time from in when stdin is redirected.
func newPasswordPrompt(stdin *os.File, in *bufio.Reader, errOut io.Writer) func(string) ([]byte, error) {
	fd := int(stdin.Fd())
	if term.IsTerminal(fd) {
		return func(prompt string) ([]byte, error) {
			fmt.Fprint(errOut, prompt)
			pw, err := term.ReadPassword(fd)
			fmt.Fprintln(errOut)
			if err != nil {
				return nil, err
			}
			return pw, nil
		}
	}
	return lineReader(in, errOut)
}

func lineReader(in *bufio.Reader, errOut io.Writer) func(string) ([]byte, error) {
	return func(prompt string) ([]byte, error) {
		fmt.Fprint(errOut, prompt)
		line, err := in.ReadBytes('\n')
		if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
			krypto.Wipe(line)
			return nil, err
		}
		return bytes.TrimRight(line, "\r\n"), nil
	}
}

// unlock asks for the password and opens the store. A store without a data
// file is treated as new: the password is confirmed and checked for
// strength before use.
func (t *terminal) unlock(svc *service.Service) error {
	exists, err := svc.HasData()
	if err != nil {
		return err
	}
	if !exists {
		return t.unlockNew(svc)
	}

	for attempt := 1; ; attempt++ {
		pw, err := t.password("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}

		err = svc.Unlock(pw)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrWrongPasswordOrCorruptFile), errors.Is(err, service.ErrEmptyPassword):
			fmt.Fprintln(t.errOut, err)
			if attempt >= maxUnlockAttempts {
				return userError{msg: "too many failed attempts"}
			}
		default:
			return err
		}
	}
}

func (t *terminal) unlockNew(svc *service.Service) error {
	fmt.Fprintf(t.out, "no data file at %s; choose a password for the new store\n", svc.Paths().DataPath())

	pw, err := t.password("New password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	confirm, err := t.password("Confirm password: ")
	if err != nil {
		krypto.Wipe(pw)
		return fmt.Errorf("read confirmation password: %w", err)
	}
	defer krypto.Wipe(confirm)

	if !bytes.Equal(pw, confirm) {
		krypto.Wipe(pw)
		return userError{msg: "passwords do not match"}
	}
	if len(pw) == 0 {
		return userError{msg: "password is required"}
	}
	if t.strict {
		if err := auth.ValidateMasterPassword(string(pw)); err != nil {
			krypto.Wipe(pw)
			return userError{msg: "password does not meet policy requirements: " + err.Error()}
		}
	}

	t.advise(pw, filepath.Base(svc.Paths().Dir))
	return svc.Unlock(pw)
}

// advise prints strength warnings and, when enabled, the breach check
// result. It never blocks the password from being used.
func (t *terminal) advise(pw []byte, hints ...string) {
	strength := auth.Assess(string(pw), hints...)
	if strength.Weak() {
		fmt.Fprintf(t.errOut, "warning: weak password (score %d/4, cracked in %s)\n", strength.Score, strength.CrackTime)
		for _, p := range strength.Problems {
			fmt.Fprintf(t.errOut, "  - %v\n", p)
		}
	}

	if t.breach == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), breachTimeout)
	defer cancel()
	res, err := t.breach.Check(ctx, pw)
	if err != nil {
		t.log.Warn().Err(err).Msg("breach check failed")
		return
	}
	if res.Found {
		fmt.Fprintf(t.errOut, "warning: password appears in %d known breaches\n", res.Count)
	}
}
