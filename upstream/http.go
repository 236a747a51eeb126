// Package upstream holds thin REST clients for the Case Service and the
// Address Index. Responses are decoded into DTOs and mapped to
// ccfacade.CachedCase by the caller.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when the upstream answers 404.
var ErrNotFound = errors.New("upstream: not found")

// StatusError is any other non-2xx answer.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream: %s returned %d", e.URL, e.Code)
	}
	return fmt.Sprintf("upstream: %s returned %d: %s", e.URL, e.Code, e.Body)
}

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Option configures a client.
type Option func(*base)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *base) { b.hc = hc }
}

type base struct {
	baseURL string
	hc      *http.Client
}

func newBase(baseURL string, timeout time.Duration, opts []Option) base {
	b := base{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: timeout},
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

func (b base) getJSON(ctx context.Context, path string, out any) error {
	url := b.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.hc.Do(req)
	if err != nil {
		return fmt.Errorf("upstream: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, URL: url, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("upstream: decode %s: %w", url, err)
	}
	return nil
}
