// Package httpfetch implements ports.Fetcher against the analysis backend.
package httpfetch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/zerr"
)

// maxBodyBytes bounds a single payload.
const maxBodyBytes = 32 << 20

var levelPaths = [domain.LevelCount]string{"misinformation", "statement", "provenance"}

// Client fetches level payloads over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for baseURL with a per-request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = domain.DefaultTimeout
	}
	return NewWithClient(baseURL, &http.Client{Timeout: timeout})
}

// NewWithClient creates a Client that sends requests through httpClient.
func NewWithClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// URL returns the endpoint that serves level for key.
func (c *Client) URL(level domain.Level, key domain.Key) (string, error) {
	if !level.Valid() {
		return "", zerr.With(zerr.Wrap(domain.ErrUnknownLevel, "no endpoint for level"), "level", int(level))
	}
	if err := key.ValidFor(level); err != nil {
		return "", err
	}
	return c.baseURL + "/" + levelPaths[level] + "/" + url.PathEscape(string(key)), nil
}

// Fetch implements ports.Fetcher.
func (c *Client) Fetch(ctx context.Context, level domain.Level, key domain.Key) (domain.RawPayload, error) {
	endpoint, err := c.URL(level, key)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrFetchFailed, err), "url", endpoint)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrFetchFailed, err), "url", endpoint)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, zerr.With(zerr.Wrap(domain.ErrNotFound, "backend has no data"), "url", endpoint)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		err := zerr.With(zerr.Wrap(domain.ErrFetchFailed, "unexpected status"), "status_code", resp.StatusCode)
		return nil, zerr.With(err, "url", endpoint)
	}

	payload, err := domain.NewPayload(level)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	if err := dec.Decode(payload); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrPayloadDecode, err), "url", endpoint)
	}
	return payload, nil
}
