package mqtt

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-reactor/reactor"
)

// Reply is the outcome of a request/reply round-trip.
type Reply struct {
	// Topic is the topic the reply arrived on.
	Topic string
	// Payload is the raw reply payload. Nil when Err is set.
	Payload []byte
	// Err reports a failed round-trip (publish failure, timeout, or
	// cancellation).
	Err error
}

// PublishVia publishes payload on the background runtime and delivers the
// publish outcome to completion on h's owner goroutine.
//
// The calling goroutine never blocks on the broker. The completion runs
// at most once; it is skipped when the task is cancelled or the host
// object is destroyed before delivery.
//
// Parameters:
//   - h: the owner-thread object requesting the publish
//   - c: the connected MQTT client
//   - topic: topic to publish to
//   - payload: message payload
//   - retained: whether the broker retains the message
//   - completion: receives the publish error (nil on success)
//
// Returns:
//   - reactor.CancelHandle: abandons delivery of the outcome; the publish
//     itself may still reach the broker
func PublishVia[H reactor.Handler](h H, c *Client, topic string, payload []byte, retained bool, completion func(H, error)) reactor.CancelHandle {
	qos := byte(c.cfg.QoS)
	return reactor.Spawn(h, func(_ context.Context) error {
		return c.Publish(topic, payload, qos, retained)
	}, completion)
}

// RequestVia publishes a request and waits for one reply on replyTopic,
// delivering the outcome to completion on h's owner goroutine.
//
// The round-trip runs entirely on the background runtime: subscribe to
// the reply topic, publish the request, wait for the first message or
// the timeout, unsubscribe. Cancelling the handle or destroying the host
// object abandons the wait.
//
// Parameters:
//   - h: the owner-thread object making the request
//   - c: the connected MQTT client
//   - reqTopic: topic the request is published to
//   - replyTopic: topic the reply is expected on (no wildcards)
//   - payload: request payload
//   - timeout: maximum time to wait for the reply
//   - completion: receives the Reply on the owner goroutine
//
// Returns:
//   - reactor.CancelHandle: cancels the wait
func RequestVia[H reactor.Handler](h H, c *Client, reqTopic, replyTopic string, payload []byte, timeout time.Duration, completion func(H, Reply)) reactor.CancelHandle {
	qos := byte(c.cfg.QoS)

	return reactor.Spawn(h, func(ctx context.Context) Reply {
		replies := make(chan Reply, 1)
		err := c.Subscribe(replyTopic, qos, func(topic string, body []byte) error {
			// Buffered to 1; later replies for the same request are dropped.
			select {
			case replies <- Reply{Topic: topic, Payload: body}:
			default:
			}
			return nil
		})
		if err != nil {
			return Reply{Err: err}
		}
		defer c.Unsubscribe(replyTopic) //nolint:errcheck // Best effort cleanup

		if err := c.Publish(reqTopic, payload, qos, false); err != nil {
			return Reply{Err: err}
		}

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case reply := <-replies:
			return reply
		case <-timer.C:
			return Reply{Err: ErrRequestTimeout}
		case <-ctx.Done():
			return Reply{Err: ctx.Err()}
		}
	}, completion)
}
