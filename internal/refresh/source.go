package refresh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultFetchTimeout bounds a single content fetch.
	DefaultFetchTimeout = 15 * time.Second
	// DefaultMaxBodyBytes caps the fetched body.
	DefaultMaxBodyBytes = 1 << 20
)

// ErrEmptyContent marks a fetch that returned only whitespace.
var ErrEmptyContent = errors.New("refresh: fetched content is empty")

// Source fetches the authored markup published at url.
type Source interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("refresh: GET %s: status %d", e.URL, e.Status)
}

// HTTPSource issues a single GET per fetch. It never retries.
type HTTPSource struct {
	Client       *http.Client
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// NewHTTPSource returns a source with the default timeout and body cap.
func NewHTTPSource(client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPSource{Client: client, Timeout: DefaultFetchTimeout, MaxBodyBytes: DefaultMaxBodyBytes}
}

func (s *HTTPSource) Fetch(ctx context.Context, url string) (string, error) {
	body, err := s.get(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *HTTPSource) get(ctx context.Context, url string) ([]byte, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("refresh: build request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}
	limit := s.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("refresh: read body: %w", err)
	}
	return body, nil
}

// trimContent normalizes fetched text before it is compared with the stored content.
func trimContent(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
}
