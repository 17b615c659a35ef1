// Package httpc provides a shared HTTP client with timeouts set, plus JSON
// helpers for talking to a rigserve instance.
package httpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Default timeouts for HTTP operations.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultConnectTimeout  = 5 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// maxErrorBody bounds how much of a failed response ends up in an error.
const maxErrorBody = 512

// Client is the shared client. Use it instead of http.DefaultClient.
var Client = NewClient(DefaultTimeout)

// NewClient creates a client with the given overall timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpc: %s %s: status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// GetJSON fetches url and decodes the JSON body into v.
func GetJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("httpc: %w", err)
	}
	return Do(req, v)
}

// PostJSON sends body as JSON and decodes the response into v, which may be
// nil.
func PostJSON(ctx context.Context, url string, body, v any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("httpc: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("httpc: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return Do(req, v)
}

// Do sends req with the shared client and decodes a JSON response into v.
func Do(req *http.Request, v any) error {
	resp, err := Client.Do(req)
	if err != nil {
		return fmt.Errorf("httpc: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: req.Method,
			URL:    req.URL.String(),
			Code:   resp.StatusCode,
			Body:   string(bytes.TrimSpace(body)),
		}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("httpc: decode %s: %w", req.URL, err)
	}
	return nil
}
