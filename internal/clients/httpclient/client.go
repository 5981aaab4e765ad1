package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/nerrad567/gray-logic-reactor/internal/infrastructure/config"
)

// defaultTimeout is used when the configured timeout is missing or invalid.
const defaultTimeout = 30 * time.Second

// progressChunkSize is how much body is read between progress callbacks.
const progressChunkSize = 32 * 1024

// Client wraps http.Client with the service's request conventions.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	http        *http.Client
	maxBodySize int64
	userAgent   string
}

// Response is a fully read HTTP response.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// Body is the fully read response body, capped at the configured limit.
	Body []byte
}

// New creates a client from the HTTP collaborator configuration.
func New(cfg config.HTTPConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		http:        &http.Client{Timeout: timeout},
		maxBodySize: cfg.MaxBodySize,
		userAgent:   cfg.UserAgent,
	}
}

// Get fetches rawURL and reads the whole body.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - rawURL: Absolute URL to fetch
//
// Returns:
//   - *Response: The response with its body fully read
//   - error: If the URL is invalid, the request fails, or the body
//     exceeds the configured size limit
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	return c.get(ctx, rawURL, nil)
}

// get runs one GET request, invoking onProgress (when non-nil) as body
// chunks arrive. total is -1 when the server does not send a length.
func (c *Client) get(ctx context.Context, rawURL string, onProgress func(read, total int64)) (*Response, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read side only

	body, err := c.readBody(resp, onProgress)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// readBody reads the response body in chunks, enforcing the size limit
// and reporting progress between chunks.
func (c *Client) readBody(resp *http.Response, onProgress func(read, total int64)) ([]byte, error) {
	total := resp.ContentLength // -1 when unknown

	var body []byte
	buf := make([]byte, progressChunkSize)
	var read int64
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			read += int64(n)
			if c.maxBodySize > 0 && read > c.maxBodySize {
				return nil, fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, c.maxBodySize)
			}
			body = append(body, buf[:n]...)
			if onProgress != nil {
				onProgress(read, total)
			}
		}
		if err == io.EOF {
			return body, nil
		}
		if err != nil {
			return nil, fmt.Errorf("httpclient: reading body: %w", err)
		}
	}
}

// validateURL rejects empty, relative, or schemeless URLs.
func validateURL(rawURL string) error {
	if rawURL == "" {
		return ErrInvalidURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
