package httpclient

import "errors"

// Sentinel errors for HTTP operations.
var (
	// ErrInvalidURL is returned when the request URL is empty or malformed.
	ErrInvalidURL = errors.New("httpclient: invalid URL")

	// ErrBodyTooLarge is returned when a response body exceeds the
	// configured size limit.
	ErrBodyTooLarge = errors.New("httpclient: response body exceeds size limit")
)
