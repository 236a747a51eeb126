package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/unkn0wn-root/ccfacade"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "ccfacade.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestStoreCommandInProcessBackend(t *testing.T) {
	cfg := writeConfig(t, `
project: census-cc
store:
  backend: ristretto
log:
  backend: slog
  level: error
`)
	out, _, err := run(t, `{"id":"3305e937","uprn":"0100041045018"}`, "--config", cfg, "store")
	if err == nil {
		// 13 characters with the leading zero: rejected before any write
		t.Fatalf("expected invalid uprn, got %q", out)
	}

	out, errOut, err := run(t, `{"id":"3305e937","uprn":"100041045018"}`, "--config", cfg, "store", "--file", "-")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(errOut, "warning: store.backend=ristretto keeps records in this process only") {
		t.Fatalf("missing in-process warning, stderr %q", errOut)
	}
	if !strings.Contains(out, "uprn=100041045018") || !strings.Contains(out, "collection=census-cc-cachedcase") || !strings.Contains(out, "generation=1") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestReadCommandMiss(t *testing.T) {
	cfg := writeConfig(t, `
project: census-cc
store:
  backend: bigcache
log:
  backend: logrus
  level: error
`)
	_, _, err := run(t, "", "--config", cfg, "read", "42")
	if err == nil || !strings.Contains(err.Error(), "no cached case") {
		t.Fatalf("expected miss error, got %v", err)
	}
}

func TestReadCommandRejectsBadUPRN(t *testing.T) {
	if _, _, err := run(t, "", "read", "12a"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestInvalidConfigFailsFast(t *testing.T) {
	cfg := writeConfig(t, "store:\n  backend: ristretto\n")
	if _, _, err := run(t, "", "--config", cfg, "read", "1"); err == nil || !strings.Contains(err.Error(), "project") {
		t.Fatalf("expected missing project error, got %v", err)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, ccfacade.CachedCase{ID: "a", UPRN: "1"}); err != nil {
		t.Fatal(err)
	}
	var c ccfacade.CachedCase
	if err := json.Unmarshal(buf.Bytes(), &c); err != nil || c.UPRN != "1" {
		t.Fatalf("round trip: %+v %v", c, err)
	}
}

func upstreamConfig(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return writeConfig(t, fmt.Sprintf(`
project: census-cc
store:
  backend: ristretto
upstream:
  case_service_url: %s
  address_index_url: %s
log:
  backend: slog
  level: error
`, srv.URL, srv.URL))
}

func TestCaseCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cases/3305e937" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"id":"3305e937","uprn":"100041045018","postcode":"EX2 6GA"}`))
	}))
	defer srv.Close()
	cfg := upstreamConfig(t, srv)

	out, _, err := run(t, "", "--config", cfg, "case", "3305e937")
	if err != nil {
		t.Fatal(err)
	}
	var c ccfacade.CachedCase
	if err := json.Unmarshal([]byte(out), &c); err != nil {
		t.Fatalf("output %q: %v", out, err)
	}
	if c.ID != "3305e937" || c.UPRN != "100041045018" || c.Postcode != "EX2 6GA" {
		t.Fatalf("case = %+v", c)
	}

	if _, _, err := run(t, "", "--config", cfg, "case", "missing"); err == nil || !strings.Contains(err.Error(), "no case with id missing") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAddressesCommand(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/addresses/postcode/EX2 6GA" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"response":{"addresses":[{"uprn":"1"},{"uprn":"2"}],"total":7,"offset":5,"limit":2}}`))
	}))
	defer srv.Close()
	cfg := upstreamConfig(t, srv)

	out, errOut, err := run(t, "", "--config", cfg, "addresses", "EX2 6GA", "--offset", "5", "--limit", "2")
	if err != nil {
		t.Fatal(err)
	}
	if gotQuery != "limit=2&offset=5" {
		t.Fatalf("query = %q", gotQuery)
	}
	if !strings.Contains(errOut, "total=7 offset=5 limit=2") {
		t.Fatalf("stderr = %q", errOut)
	}
	var addrs []map[string]any
	if err := json.Unmarshal([]byte(out), &addrs); err != nil || len(addrs) != 2 || addrs[1]["uprn"] != "2" {
		t.Fatalf("addresses = %v err=%v", addrs, err)
	}

	if _, _, err := run(t, "", "--config", cfg, "addresses", "EX2 6GA", "--limit", "0"); err == nil {
		t.Fatalf("expected invalid page error")
	}
}
