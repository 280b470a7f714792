package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Hussein-Mazeh/securekv/internal/service"
	"github.com/Hussein-Mazeh/securekv/internal/vault"
)

type outcome int

const (
	outcomeQuit outcome = iota
	outcomeLocked
)

// runSessions alternates between unlocking and editing until the user quits.
func (t *terminal) runSessions(svc *service.Service) error {
	locked := false
	for {
		if err := t.unlock(svc); err != nil {
			if locked && errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		out, err := t.session(svc)
		if err != nil || out == outcomeQuit {
			return err
		}
		locked = true
		fmt.Fprintln(t.out, "store locked")
	}
}

// editor holds the working copy being edited and the last persisted state.
type editor struct {
	svc   *service.Service
	saved *vault.Dataset
	work  *vault.Dataset
}

func (e *editor) unsaved() bool {
	return !e.work.Equal(e.saved)
}

func (t *terminal) session(svc *service.Service) (outcome, error) {
	saved, err := svc.Read()
	if err != nil {
		return outcomeQuit, err
	}
	e := &editor{svc: svc, saved: saved, work: saved.Clone()}
	fmt.Fprintf(t.out, "unlocked %d entries; type 'help' for commands\n", saved.Len())

	var armed string
	for {
		fmt.Fprint(t.out, "skv> ")
		line, err := t.in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			if !errors.Is(err, io.EOF) {
				return outcomeQuit, fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(t.out)
			if e.unsaved() {
				fmt.Fprintln(t.errOut, "discarding unsaved changes")
			}
			svc.Lock()
			return outcomeQuit, nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, rest, _ := strings.Cut(line, " ")
		rest = strings.TrimSpace(rest)

		// quit and lock ask to be repeated before discarding edits.
		if cmd == "exit" {
			cmd = "quit"
		}
		if cmd == "quit" || cmd == "lock" {
			if e.unsaved() && armed != cmd {
				armed = cmd
				fmt.Fprintf(t.errOut, "unsaved changes; 'save' first or repeat '%s' to discard them\n", cmd)
				continue
			}
			svc.Lock()
			if cmd == "quit" {
				return outcomeQuit, nil
			}
			return outcomeLocked, nil
		}
		armed = ""

		if err := t.dispatch(e, cmd, rest); err != nil {
			handleSessionError(t.errOut, err)
		}
	}
}

func (t *terminal) dispatch(e *editor, cmd, rest string) error {
	switch cmd {
	case "help":
		printSessionHelp(t.out)
	case "list":
		keys := e.work.Match(rest)
		if len(keys) == 0 {
			fmt.Fprintln(t.out, "(no entries)")
		}
		for _, k := range keys {
			fmt.Fprintln(t.out, k)
		}
	case "get":
		if rest == "" {
			return userError{msg: "usage: get <key>"}
		}
		v, ok := e.work.Get(rest)
		if !ok {
			return userError{msg: fmt.Sprintf("no entry %q", rest)}
		}
		fmt.Fprintln(t.out, v)
	case "set":
		key, value, ok := strings.Cut(rest, " ")
		if !ok || key == "" {
			return userError{msg: "usage: set <key> <value>"}
		}
		return e.work.Set(key, strings.TrimSpace(value))
	case "del":
		if rest == "" {
			return userError{msg: "usage: del <key>"}
		}
		if !e.work.Delete(rest) {
			return userError{msg: fmt.Sprintf("no entry %q", rest)}
		}
	case "save":
		return t.save(e)
	case "status":
		t.printStatus(e)
	default:
		return userError{msg: fmt.Sprintf("unknown command: %s", cmd)}
	}
	return nil
}

func (t *terminal) save(e *editor) error {
	if !e.unsaved() && !e.svc.Dirty() {
		fmt.Fprintln(t.out, "nothing to save")
		return nil
	}
	if err := e.svc.Write(e.work); err != nil {
		var serr *service.SaveError
		if errors.As(err, &serr) {
			return userError{msg: fmt.Sprintf("%v; changes kept, try 'save' again", err)}
		}
		return err
	}
	e.saved = e.work.Clone()
	fmt.Fprintf(t.out, "saved %d entries\n", e.saved.Len())
	return nil
}

func (t *terminal) printStatus(e *editor) {
	paths := e.svc.Paths()
	fmt.Fprintf(t.out, "data file:  %s\n", paths.DataPath())
	fmt.Fprintf(t.out, "salt file:  %s\n", paths.SaltPath())
	if rec, ok := e.svc.SaltRecord(); ok {
		fmt.Fprintf(t.out, "cipher:     %s\n", rec.Cipher)
		fmt.Fprintf(t.out, "kdf:        %s m=%dMiB t=%d p=%d\n", rec.KDF.Name, rec.KDF.MemoryMB, rec.KDF.Time, rec.KDF.Parallelism)
	}
	fmt.Fprintf(t.out, "entries:    %d\n", e.work.Len())
	fmt.Fprintf(t.out, "unsaved:    %t\n", e.unsaved() || e.svc.Dirty())
}

func handleSessionError(w io.Writer, err error) {
	var uerr userError
	if errors.As(err, &uerr) {
		fmt.Fprintln(w, uerr.Error())
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func printSessionHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  list [filter]        keys containing filter, sorted")
	fmt.Fprintln(w, "  get <key>")
	fmt.Fprintln(w, "  set <key> <value>")
	fmt.Fprintln(w, "  del <key>")
	fmt.Fprintln(w, "  save                 encrypt and write the data file")
	fmt.Fprintln(w, "  status")
	fmt.Fprintln(w, "  lock                 forget the key and ask for the password again")
	fmt.Fprintln(w, "  exit | quit")
}
