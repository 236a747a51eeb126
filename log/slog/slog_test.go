//go:build go1.21

package slog

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/unkn0wn-root/ccfacade"
)

func TestSlogLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("hidden", nil)
	l.Warn("store retries exhausted", ccfacade.Fields{"uprn": "123"})

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["msg"] != "store retries exhausted" || line["uprn"] != "123" || line["level"] != "WARN" {
		t.Fatalf("line = %v", line)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
