package adapters

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brettbedarf/docfs"
	"github.com/brettbedarf/docfs/internal/util"
)

type HTTPMethod = string

const (
	HTTPMethodGet    HTTPMethod = "GET"
	HTTPMethodPut    HTTPMethod = "PUT"
	HTTPMethodDelete HTTPMethod = "DELETE"
)

// HTTPClient is the subset of *http.Client used by [HTTPStore]
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource contains http-specific store definition fields.
// Document bodies live at {url}/{contentID}.
type HTTPSource struct {
	URL     string            `yaml:"url" json:"url"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// HTTPStore implements [docfs.ContentStore] against a remote HTTP endpoint
type HTTPStore struct {
	base    *url.URL
	headers map[string]string
	client  HTTPClient
	timeout time.Duration // per request; 0 = caller's context only
}

// NewHTTPStore validates src and returns a store using client
func NewHTTPStore(src HTTPSource, client HTTPClient, timeout time.Duration) (*HTTPStore, error) {
	base, err := parseBaseURL(src.URL)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{
		base:    base,
		headers: src.Headers,
		client:  client,
		timeout: timeout,
	}, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty store url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported store url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("store url %q has no host", raw)
	}
	if u.User != nil {
		return nil, fmt.Errorf("store url must not contain user info")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

// contentURL returns the body location for contentID
func (s *HTTPStore) contentURL(contentID string) string {
	u := *s.base
	u.Path = s.base.Path + "/" + contentID
	u.RawPath = s.base.EscapedPath() + "/" + url.PathEscape(contentID)
	return u.String()
}

func (s *HTTPStore) do(ctx context.Context, method HTTPMethod, contentID string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.contentURL(contentID), reader)
	if err != nil {
		return nil, err
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	return s.client.Do(req)
}

func (s *HTTPStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *HTTPStore) Get(ctx context.Context, contentID string) ([]byte, error) {
	logger := util.GetLogger("HTTPStore.Get")
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.do(ctx, HTTPMethodGet, contentID, nil)
	if err != nil {
		return nil, fmt.Errorf("get content %s: %w", contentID, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("get content %s: %w", contentID, docfs.ErrContentNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("get content %s: unexpected status %d", contentID, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", contentID, err)
	}
	logger.Trace().Str("contentID", contentID).Int("size", len(data)).Msg("Fetched content")
	return data, nil
}

func (s *HTTPStore) Put(ctx context.Context, contentID string, data []byte) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if data == nil {
		data = []byte{}
	}
	resp, err := s.do(ctx, HTTPMethodPut, contentID, data)
	if err != nil {
		return fmt.Errorf("put content %s: %w", contentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("put content %s: unexpected status %d", contentID, resp.StatusCode)
	}
	return nil
}

func (s *HTTPStore) Delete(ctx context.Context, contentID string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	resp, err := s.do(ctx, HTTPMethodDelete, contentID, nil)
	if err != nil {
		return fmt.Errorf("delete content %s: %w", contentID, err)
	}
	defer resp.Body.Close()

	// already gone is fine
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delete content %s: unexpected status %d", contentID, resp.StatusCode)
	}
	return nil
}

var _ docfs.ContentStore = (*HTTPStore)(nil)
