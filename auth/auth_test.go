package auth

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestValidateMasterPassword(t *testing.T) {
	cases := []struct {
		name string
		pw   string
		want error
	}{
		{"ok", "Correct-Horse-42", nil},
		{"short", "Ab1!", errTooShort},
		{"no upper", "correct-horse-42", errNoUpper},
		{"no digit", "Correct-Horse-xx", errNoDigit},
		{"no special", "CorrectHorse42x", errNoSpecial},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateMasterPassword(tc.pw); !errors.Is(err, tc.want) {
				t.Fatalf("ValidateMasterPassword(%q) = %v, want %v", tc.pw, err, tc.want)
			}
		})
	}
}

func TestAssess(t *testing.T) {
	weak := Assess("password")
	if !weak.Weak() || weak.Score >= MinScore {
		t.Fatalf("expected weak result, got %+v", weak)
	}
	if len(weak.Problems) != 4 {
		t.Fatalf("expected 4 policy problems, got %v", weak.Problems)
	}

	strong := Assess("Vq7#mZ2!pL9@xR4$wT")
	if strong.Weak() {
		t.Fatalf("expected strong result, got %+v", strong)
	}
	if strong.CrackTime == "" {
		t.Fatal("expected crack time estimate")
	}
}

func hibpServer(t *testing.T, pw string, count int) (*httptest.Server, *string) {
	t.Helper()
	sum := sha1.Sum([]byte(pw))
	hashHex := strings.ToUpper(hex.EncodeToString(sum[:]))

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprintln(w, "0000000000000000000000000000000000A:0")
		if count > 0 {
			fmt.Fprintf(w, "%s:%d\r\n", strings.ToLower(hashHex[5:]), count)
		}
		fmt.Fprintln(w, "FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFF:12")
	}))
	t.Cleanup(srv.Close)
	return srv, &gotPath
}

func TestCheckerFound(t *testing.T) {
	srv, gotPath := hibpServer(t, "hunter2", 17)
	c := &Checker{BaseURL: srv.URL + "/range/", Client: srv.Client()}

	res, err := c.Check(context.Background(), []byte("hunter2"))
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if !res.Found || res.Count != 17 {
		t.Fatalf("unexpected result: %+v", res)
	}

	sum := sha1.Sum([]byte("hunter2"))
	wantPrefix := strings.ToUpper(hex.EncodeToString(sum[:]))[:5]
	if *gotPath != "/range/"+wantPrefix {
		t.Fatalf("request path = %q, want only the 5 char prefix", *gotPath)
	}
}

func TestCheckerNotFound(t *testing.T) {
	srv, _ := hibpServer(t, "unrelated", 0)
	c := &Checker{BaseURL: srv.URL + "/", Client: srv.Client()}

	res, err := c.Check(context.Background(), []byte("unrelated"))
	if err != nil {
		t.Fatalf("Check returned error: %v", err)
	}
	if res.Found {
		t.Fatalf("unexpected match: %+v", res)
	}
}

func TestCheckerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := &Checker{BaseURL: srv.URL + "/", Client: srv.Client()}
	if _, err := c.Check(context.Background(), []byte("pw")); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
