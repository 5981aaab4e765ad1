package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Request is a buildable HTTP request. Construct with NewRequest and
// chain the With* methods; execute with Client.Do.
type Request struct {
	method string
	rawURL string
	header http.Header
	query  url.Values
	body   []byte
}

// NewRequest starts building a request.
//
// Parameters:
//   - method: HTTP method (http.MethodGet, http.MethodPost, ...)
//   - rawURL: Absolute URL, without query parameters added via WithQuery
func NewRequest(method, rawURL string) *Request {
	return &Request{
		method: method,
		rawURL: rawURL,
		header: make(http.Header),
		query:  make(url.Values),
	}
}

// WithHeader adds a header to the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.header.Add(key, value)
	return r
}

// WithQuery adds a query parameter to the request URL.
func (r *Request) WithQuery(key, value string) *Request {
	r.query.Add(key, value)
	return r
}

// WithBody sets the request body. The caller keeps ownership of b and
// must not mutate it until Do returns.
func (r *Request) WithBody(b []byte) *Request {
	r.body = b
	return r
}

// Do executes the built request and reads the whole response body,
// enforcing the client's size limit.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - req: The built request
//
// Returns:
//   - *Response: The response with its body fully read
//   - error: If the URL is invalid, the request fails, or the body
//     exceeds the configured size limit
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	if err := validateURL(req.rawURL); err != nil {
		return nil, err
	}

	u, err := url.Parse(req.rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if len(req.query) > 0 {
		merged := u.Query()
		for key, values := range req.query {
			for _, v := range values {
				merged.Add(key, v)
			}
		}
		u.RawQuery = merged.Encode()
	}

	var body *bytes.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	} else {
		body = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	for key, values := range req.header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httpclient: request failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read side only

	respBody, err := c.readBody(resp, nil)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
