package httpclient

import (
	"context"
	"errors"

	"github.com/nerrad567/gray-logic-reactor/reactor"
)

// Result is the outcome of a background fetch.
type Result struct {
	// Response is the fetched response. Nil when Err is set.
	Response *Response
	// Err reports a failed fetch.
	Err error
}

// progress carries one progress update across the thread boundary.
type progress struct {
	read  int64
	total int64
}

// FetchVia fetches rawURL on the background runtime and delivers the
// outcome to completion on h's owner goroutine.
//
// When onProgress is non-nil it runs on the owner goroutine as body
// chunks arrive, marshalled through a cloned Invoker; total is -1 when
// the server sends no content length. A progress delivery that finds the
// host object destroyed aborts the fetch. The completion runs at most
// once and is skipped when the task is cancelled or the object is gone.
//
// Parameters:
//   - h: the owner-thread object requesting the fetch
//   - c: the HTTP client
//   - rawURL: absolute URL to fetch
//   - onProgress: optional progress callback, owner goroutine
//   - completion: receives the Result on the owner goroutine
//
// Returns:
//   - reactor.CancelHandle: cancels the fetch; the request context is
//     cancelled and the body read aborted
func FetchVia[H reactor.Handler](h H, c *Client, rawURL string, onProgress func(H, int64, int64), completion func(H, Result)) reactor.CancelHandle {
	inv := reactor.NewInvoker(h)

	return reactor.Spawn(h, func(ctx context.Context) Result {
		fetchCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		var reporter func(read, total int64)
		if onProgress != nil {
			pinv := inv.Clone()
			dead := false
			reporter = func(read, total int64) {
				if dead {
					return
				}
				_, err := reactor.Invoke(pinv, progress{read: read, total: total},
					func(target H, p progress) struct{} {
						onProgress(target, p.read, p.total)
						return struct{}{}
					})
				if errors.Is(err, reactor.ErrTargetDead) {
					// No one left to deliver to; stop the transfer.
					dead = true
					cancel()
				}
			}
		}

		resp, err := c.get(fetchCtx, rawURL, reporter)
		if err != nil {
			return Result{Err: err}
		}
		return Result{Response: resp}
	}, completion)
}
