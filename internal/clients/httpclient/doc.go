// Package httpclient provides the HTTP collaborator for owner-thread objects.
//
// This package wraps net/http with timeouts, response size limits, and
// reactor integration: FetchVia runs the request on the background
// runtime, streams progress callbacks to the requesting object's owner
// thread via a cloned Invoker, and delivers the final response there.
//
// # Configuration
//
// The client is configured via the HTTPConfig in config.yaml:
//
//	http:
//	  timeout: 30          # seconds per request
//	  max_body_size: 0     # bytes, 0 = unlimited
//	  user_agent: "grayreactor"
//
// # Usage
//
//	client := httpclient.New(cfg.HTTP)
//
//	// From an owner-thread object:
//	httpclient.FetchVia(obj, client, "https://example.com/data",
//	    func(o *MyObject, read, total int64) {
//	        // Progress, on the owner goroutine.
//	    },
//	    func(o *MyObject, res httpclient.Result) {
//	        // Final result, on the owner goroutine.
//	    })
package httpclient
