package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Hussein-Mazeh/securekv/internal/logging"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "warn", true)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info().Msg("hidden")
	logger.Warn().Str("path", "data.enc").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d: %s", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["message"] != "shown" || entry["path"] != "data.enc" || entry["level"] != "warn" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := logging.New(&bytes.Buffer{}, "loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(&buf, "DEBUG", false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug().Msg("console line")
	if !bytes.Contains(buf.Bytes(), []byte("console line")) {
		t.Fatalf("console output missing message: %q", buf.String())
	}
}
